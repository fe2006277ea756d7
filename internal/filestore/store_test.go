package filestore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bbtalk/internal/config"
)

func newLocal(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(config.FileStoreConfig{Type: "local", Dir: dir})
	require.NoError(t, err)
	return store, dir
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	assert.Error(t, err)
	_, err = New(config.FileStoreConfig{})
	assert.Error(t, err)
}

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	store, dir := newLocal(t)
	ctx := context.Background()

	data := []byte("page content")
	require.NoError(t, store.Save(ctx, "json/bbtalk_page1.json", bytes.NewReader(data), int64(len(data))))

	// object lands under the configured root
	_, err := os.Stat(filepath.Join(dir, "json", "bbtalk_page1.json"))
	require.NoError(t, err)

	r, err := store.Open(ctx, "json/bbtalk_page1.json")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, "json/bbtalk_page1.json"))
	_, err = store.Open(ctx, "json/bbtalk_page1.json")
	assert.Error(t, err)
}

func TestLocalStore_Overwrite(t *testing.T) {
	store, _ := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", bytes.NewReader([]byte("v1")), 2))
	require.NoError(t, store.Save(ctx, "k", bytes.NewReader([]byte("v2-longer")), 9))

	r, err := store.Open(ctx, "k")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-longer"), got)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, _ := newLocal(t)
	ctx := context.Background()

	err := store.Save(ctx, "../escape", bytes.NewReader([]byte("x")), 1)
	assert.Error(t, err)
	_, err = store.Open(ctx, "a/../../escape")
	assert.Error(t, err)
	err = store.Delete(ctx, "")
	assert.Error(t, err)
}
