package presence

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// MemoryTracker 进程内在线状态
// 过期时间存于最小堆，读取时惰性清理
type MemoryTracker struct {
	mu      sync.Mutex
	idle    time.Duration
	now     clock
	expires map[string]time.Time
	queue   expiryHeap
}

// NewMemoryTracker 创建进程内在线状态
func NewMemoryTracker(idle time.Duration) *MemoryTracker {
	return &MemoryTracker{
		idle:    idle,
		now:     time.Now,
		expires: make(map[string]time.Time),
	}
}

var _ Tracker = (*MemoryTracker)(nil)

// Touch 刷新用户的过期时间
func (t *MemoryTracker) Touch(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	at := t.now().Add(t.idle)
	t.expires[userID] = at
	heap.Push(&t.queue, expiry{userID: userID, at: at})
	t.sweep()
	return nil
}

// Remove 立即移除用户，堆中的旧条目在清理时丢弃
func (t *MemoryTracker) Remove(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.expires, userID)
	return nil
}

// Count 当前在线人数
func (t *MemoryTracker) Count(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	return len(t.expires), nil
}

// sweep 弹出已过期的条目，只有与当前记录一致时才删除用户
func (t *MemoryTracker) sweep() {
	now := t.now()
	for t.queue.Len() > 0 && !t.queue[0].at.After(now) {
		e := heap.Pop(&t.queue).(expiry)
		if cur, ok := t.expires[e.userID]; ok && cur.Equal(e.at) {
			delete(t.expires, e.userID)
		}
	}

	// 频繁刷新的用户会留下大量旧条目
	if t.queue.Len() > 2*len(t.expires)+64 {
		t.queue = t.queue[:0]
		for id, at := range t.expires {
			t.queue = append(t.queue, expiry{userID: id, at: at})
		}
		heap.Init(&t.queue)
	}
}

type expiry struct {
	userID string
	at     time.Time
}

type expiryHeap []expiry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) { *h = append(*h, x.(expiry)) }

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
