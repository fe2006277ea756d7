package track

import (
	"sync"
	"time"
)

// IdempotencyTracker remembers delivery identifiers for a bounded window.
// The platform delivers at-least-once, so every side-effecting handler must
// check Seen before doing work; a hit means the work already started (or
// finished) on an earlier delivery and only an acknowledgment is owed.
type IdempotencyTracker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	clock   Clock
}

func NewIdempotencyTracker(ttl time.Duration, clock Clock) *IdempotencyTracker {
	if clock == nil {
		clock = SystemClock()
	}
	return &IdempotencyTracker{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		clock:   clock,
	}
}

func (t *IdempotencyTracker) Seen(key string) bool {
	if key == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.entries[key]
	if !ok {
		return false
	}
	if t.clock.Now().Sub(at) > t.ttl {
		delete(t.entries, key)
		return false
	}
	return true
}

func (t *IdempotencyTracker) MarkSeen(key string) {
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = t.clock.Now()
}

// Sweep drops entries older than the ttl and reports how many were removed.
func (t *IdempotencyTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	removed := 0
	for key, at := range t.entries {
		if now.Sub(at) > t.ttl {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *IdempotencyTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
