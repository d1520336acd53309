package testutil

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent 解析后的事件
type SSEEvent struct {
	Event string
	Data  string
}

// ParseSSE 解析 text/event-stream 响应体
// 多行 data 以换行拼接
func ParseSSE(r io.Reader) ([]SSEEvent, error) {
	var (
		events  []SSEEvent
		current SSEEvent
		data    []string
		started bool
	)

	flush := func() {
		if !started {
			return
		}
		current.Data = strings.Join(data, "\n")
		events = append(events, current)
		current = SSEEvent{}
		data = nil
		started = false
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			current.Event = value
			started = true
		case "data":
			data = append(data, value)
			started = true
		}
	}
	flush()
	return events, scanner.Err()
}
