package track

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionTracker_BeginOnce(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())

	assert.True(t, tracker.Begin("delete:u:1"))
	assert.False(t, tracker.Begin("delete:u:1"))
	assert.True(t, tracker.Begin("delete:u:2"))
}

func TestCompletionTracker_BeginRecreatesExpired(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCompletionTracker(time.Minute, clock)

	require.True(t, tracker.Begin("k"))
	clock.Advance(2 * time.Minute)
	assert.True(t, tracker.Begin("k"))

	status, ok := tracker.Poll("k")
	require.True(t, ok)
	assert.False(t, status.Done)
	assert.Equal(t, 1, status.Retries)
}

func TestCompletionTracker_PollLifecycle(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())

	_, ok := tracker.Poll("k")
	assert.False(t, ok)

	tracker.Begin("k")
	status, ok := tracker.Poll("k")
	require.True(t, ok)
	assert.False(t, status.Done)
	assert.Equal(t, 1, status.Retries)

	status, _ = tracker.Poll("k")
	assert.Equal(t, 2, status.Retries)

	tracker.Complete("k", "done message")
	status, ok = tracker.Poll("k")
	require.True(t, ok)
	assert.True(t, status.Done)
	assert.Equal(t, "done message", status.Result)
	assert.Equal(t, 2, status.Retries)
}

func TestCompletionTracker_CompleteWithoutBegin(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())
	tracker.Complete("late", "result")
	status, ok := tracker.Poll("late")
	require.True(t, ok)
	assert.True(t, status.Done)
	assert.Equal(t, "result", status.Result)
}

func TestCompletionTracker_Forget(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())
	tracker.Begin("k")
	tracker.Forget("k")
	_, ok := tracker.Poll("k")
	assert.False(t, ok)
}

func TestCompletionTracker_WaitSeesCompletion(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())
	tracker.Begin("k")

	go func() {
		time.Sleep(20 * time.Millisecond)
		tracker.Complete("k", "ok")
	}()

	status := tracker.Wait(context.Background(), "k", 10*time.Millisecond, 20)
	assert.True(t, status.Done)
	assert.Equal(t, "ok", status.Result)
}

func TestCompletionTracker_WaitBudgetExhausted(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())
	tracker.Begin("k")

	status := tracker.Wait(context.Background(), "k", time.Millisecond, 3)
	assert.False(t, status.Done)
	assert.Equal(t, 3, status.Retries)
}

func TestCompletionTracker_WaitHonorsContext(t *testing.T) {
	tracker := NewCompletionTracker(time.Minute, newFakeClock())
	tracker.Begin("k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status := tracker.Wait(ctx, "k", time.Hour, 5)
	assert.False(t, status.Done)
}

func TestCompletionTracker_Sweep(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCompletionTracker(time.Minute, clock)

	tracker.Begin("old")
	tracker.Complete("old", "r")
	clock.Advance(2 * time.Minute)
	tracker.Begin("fresh")

	assert.Equal(t, 1, tracker.Sweep())
	assert.Equal(t, 1, tracker.Len())
}
