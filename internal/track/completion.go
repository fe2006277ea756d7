package track

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle of one tracked request. DONE is terminal.
type Status struct {
	Done    bool
	Result  string
	Retries int
}

type completionEntry struct {
	done      bool
	result    string
	retries   int
	createdAt time.Time
}

// CompletionTracker records per-request processing state so a retried
// delivery can observe the outcome of the original execution instead of
// redoing the work. It answers "is it done yet"; duplicate-execution
// prevention is the IdempotencyTracker's job.
type CompletionTracker struct {
	mu      sync.Mutex
	entries map[string]*completionEntry
	ttl     time.Duration
	clock   Clock
}

func NewCompletionTracker(ttl time.Duration, clock Clock) *CompletionTracker {
	if clock == nil {
		clock = SystemClock()
	}
	return &CompletionTracker{
		entries: make(map[string]*completionEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Begin creates a PENDING entry for key, reporting true when this call
// created it. A false return means work for key is already underway or done
// and the caller must not start a second execution.
func (t *CompletionTracker) Begin(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[key]; ok {
		if t.clock.Now().Sub(entry.createdAt) <= t.ttl {
			return false
		}
		delete(t.entries, key)
	}
	t.entries[key] = &completionEntry{createdAt: t.clock.Now()}
	return true
}

// Complete transitions key to DONE with result. Completing an unknown key
// creates the entry so a late finisher still leaves an observable outcome.
func (t *CompletionTracker) Complete(key, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &completionEntry{createdAt: t.clock.Now()}
		t.entries[key] = entry
	}
	entry.done = true
	entry.result = result
}

// Poll returns the current status of key and whether it is tracked at all.
// Each poll on a pending entry bumps the retries counter.
func (t *CompletionTracker) Poll(key string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		return Status{}, false
	}
	if !entry.done {
		entry.retries++
	}
	return Status{Done: entry.done, Result: entry.result, Retries: entry.retries}, true
}

// Forget drops the entry for key, typically after its result was delivered.
func (t *CompletionTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Wait short-polls key at interval until it is DONE, the attempt budget is
// spent, or ctx ends. It returns the final observed status; callers decide
// between answering with the result and a "still working" message.
func (t *CompletionTracker) Wait(ctx context.Context, key string, interval time.Duration, attempts int) Status {
	var last Status
	for i := 0; i < attempts; i++ {
		status, ok := t.Poll(key)
		if !ok {
			return last
		}
		last = status
		if status.Done {
			return status
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(interval):
		}
	}
	return last
}

// Sweep drops entries past the expiry window.
func (t *CompletionTracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	removed := 0
	for key, entry := range t.entries {
		if now.Sub(entry.createdAt) > t.ttl {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *CompletionTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
