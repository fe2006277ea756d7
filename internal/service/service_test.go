package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bbtalk/internal/filestore"
	"github.com/xxxsen/bbtalk/internal/repo"
	"github.com/xxxsen/bbtalk/internal/track"
)

const (
	testBindingKey = "test-binding-key"
	testDomain     = "bb.example.com"
)

// memStore is an in-memory filestore.Store for tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object not found: %s", key)
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memStore) Get(t *testing.T, key string) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	require.True(t, ok, "object missing: %s", key)
	return data
}

var _ filestore.Store = (*memStore)(nil)

type testEnv struct {
	notes      *repo.NoteRepo
	bindings   *repo.BindingRepo
	store      *memStore
	snapshots  *SnapshotService
	binding    *BindingService
	talks      *TalkService
	completion *track.CompletionTracker
	idem       *track.IdempotencyTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repo.ApplyMigrations(db))

	env := &testEnv{
		notes:      repo.NewNoteRepo(db),
		bindings:   repo.NewBindingRepo(db),
		store:      newMemStore(),
		completion: track.NewCompletionTracker(5*time.Minute, nil),
		idem:       track.NewIdempotencyTracker(time.Minute, nil),
	}
	env.snapshots = NewSnapshotService(env.notes, env.store, "json", 10)
	env.binding = NewBindingService(env.bindings, testBindingKey, 16, time.Minute)
	env.talks = NewTalkService(env.notes, env.snapshots, env.binding, env.store, env.completion, testDomain)
	return env
}

func (e *testEnv) readPage(t *testing.T, pageNum int) snapshotPage {
	t.Helper()
	data := e.store.Get(t, fmt.Sprintf("json/bbtalk_page%d.json", pageNum))
	var page snapshotPage
	require.NoError(t, json.Unmarshal(data, &page))
	return page
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
