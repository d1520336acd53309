package testutil

import (
	"errors"
	"sync"
)

// ErrEmitFailed 模拟写出失败
var ErrEmitFailed = errors.New("emit failed")

// Event 记录的事件
type Event struct {
	Name string
	Data any
}

// RecordingEmitter 记录事件的 Emitter
// FailAfter > 0 时第 FailAfter+1 次 Emit 返回 ErrEmitFailed
type RecordingEmitter struct {
	mu        sync.Mutex
	Opened    bool
	OpenErr   error
	FailAfter int
	Events    []Event

	// OnEmit 每次成功记录后调用
	OnEmit func(Event)
}

// Open 实现 Emitter
func (e *RecordingEmitter) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OpenErr != nil {
		return e.OpenErr
	}
	e.Opened = true
	return nil
}

// Emit 实现 Emitter
func (e *RecordingEmitter) Emit(name string, data any) error {
	e.mu.Lock()
	if e.FailAfter > 0 && len(e.Events) >= e.FailAfter {
		e.mu.Unlock()
		return ErrEmitFailed
	}
	ev := Event{Name: name, Data: data}
	e.Events = append(e.Events, ev)
	hook := e.OnEmit
	e.mu.Unlock()

	if hook != nil {
		hook(ev)
	}
	return nil
}

// Names 按顺序返回事件名
func (e *RecordingEmitter) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		names = append(names, ev.Name)
	}
	return names
}

// Count 指定事件出现次数
func (e *RecordingEmitter) Count(name string) int {
	n := 0
	for _, got := range e.Names() {
		if got == name {
			n++
		}
	}
	return n
}
