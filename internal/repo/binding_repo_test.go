package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

func newBindingRepo(t *testing.T) *BindingRepo {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, ApplyMigrations(db))
	return NewBindingRepo(db)
}

func TestBindingRepo_UpsertAndGet(t *testing.T) {
	repo := newBindingRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "user-1")
	assert.True(t, appErr.IsNotFound(err))

	require.NoError(t, repo.Upsert(ctx, "user-1", true, 1000))
	binding, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", binding.UserID)
	assert.True(t, binding.IsBinding)
	assert.Equal(t, int64(1000), binding.Ctime)
}

func TestBindingRepo_UpsertFlipsExisting(t *testing.T) {
	repo := newBindingRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "user-1", true, 1000))
	require.NoError(t, repo.Upsert(ctx, "user-1", false, 2000))

	binding, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, binding.IsBinding)
	assert.Equal(t, int64(1000), binding.Ctime)
	assert.Equal(t, int64(2000), binding.Mtime)
}

func TestBindingRepo_Delete(t *testing.T) {
	repo := newBindingRepo(t)
	ctx := context.Background()

	existed, err := repo.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, repo.Upsert(ctx, "user-1", true, 1000))
	existed, err = repo.Delete(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = repo.Get(ctx, "user-1")
	assert.True(t, appErr.IsNotFound(err))
}
