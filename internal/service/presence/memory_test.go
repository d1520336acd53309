package presence

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(idle time.Duration) (*MemoryTracker, *fakeClock) {
	c := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewMemoryTracker(idle)
	tr.now = c.now
	return tr, c
}

func count(t *testing.T, tr Tracker) int {
	t.Helper()
	n, err := tr.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

func TestMemoryTracker_Expiry(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(10 * time.Minute)

	_ = tr.Touch(ctx, "alice")
	clk.advance(5 * time.Minute)
	_ = tr.Touch(ctx, "bob")

	if got := count(t, tr); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}

	clk.advance(5 * time.Minute)
	if got := count(t, tr); got != 1 {
		t.Fatalf("count after alice idle = %d, want 1", got)
	}

	clk.advance(5 * time.Minute)
	if got := count(t, tr); got != 0 {
		t.Fatalf("count after all idle = %d, want 0", got)
	}
}

func TestMemoryTracker_TouchExtends(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(10 * time.Minute)

	_ = tr.Touch(ctx, "alice")
	clk.advance(9 * time.Minute)
	_ = tr.Touch(ctx, "alice")
	clk.advance(9 * time.Minute)

	if got := count(t, tr); got != 1 {
		t.Fatalf("count = %d, want 1 (refreshed)", got)
	}

	clk.advance(time.Minute)
	if got := count(t, tr); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
}

func TestMemoryTracker_Remove(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(time.Minute)

	_ = tr.Touch(ctx, "alice")
	_ = tr.Touch(ctx, "bob")
	_ = tr.Remove(ctx, "alice")

	if got := count(t, tr); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	_ = tr.Touch(ctx, "alice")
	if got := count(t, tr); got != 2 {
		t.Fatalf("count after re-touch = %d, want 2", got)
	}
}

func TestMemoryTracker_CompactsStaleEntries(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(time.Hour)

	for i := 0; i < 500; i++ {
		_ = tr.Touch(ctx, "alice")
		clk.advance(time.Second)
	}

	if got := count(t, tr); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	if tr.queue.Len() > 2+64 {
		t.Errorf("heap holds %d entries, want compaction", tr.queue.Len())
	}
}
