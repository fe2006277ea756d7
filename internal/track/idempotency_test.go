package track

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIdempotencyTracker_SeenWithinWindow(t *testing.T) {
	clock := newFakeClock()
	tracker := NewIdempotencyTracker(time.Minute, clock)

	assert.False(t, tracker.Seen("msg:1"))
	tracker.MarkSeen("msg:1")
	assert.True(t, tracker.Seen("msg:1"))
	assert.False(t, tracker.Seen("msg:2"))

	clock.Advance(59 * time.Second)
	assert.True(t, tracker.Seen("msg:1"))
}

func TestIdempotencyTracker_ExpiresLazily(t *testing.T) {
	clock := newFakeClock()
	tracker := NewIdempotencyTracker(time.Minute, clock)

	tracker.MarkSeen("msg:1")
	clock.Advance(61 * time.Second)
	assert.False(t, tracker.Seen("msg:1"))
	assert.Equal(t, 0, tracker.Len())
}

func TestIdempotencyTracker_EmptyKeyIgnored(t *testing.T) {
	tracker := NewIdempotencyTracker(time.Minute, newFakeClock())
	tracker.MarkSeen("")
	assert.False(t, tracker.Seen(""))
	assert.Equal(t, 0, tracker.Len())
}

func TestIdempotencyTracker_Sweep(t *testing.T) {
	clock := newFakeClock()
	tracker := NewIdempotencyTracker(time.Minute, clock)

	tracker.MarkSeen("old:1")
	tracker.MarkSeen("old:2")
	clock.Advance(2 * time.Minute)
	tracker.MarkSeen("fresh")

	assert.Equal(t, 2, tracker.Sweep())
	assert.Equal(t, 1, tracker.Len())
	assert.True(t, tracker.Seen("fresh"))
}
