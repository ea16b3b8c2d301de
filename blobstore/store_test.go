package blobstore

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	data := []byte("packed plane bytes for a snapshot")

	// Streaming create.
	w, err := store.Create(ctx, "runs/run-001.pfsnap")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	// Open + ReadAt.
	blob, err := store.Open(ctx, "runs/run-001.pfsnap")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 7)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("plane"), buf)

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.NoError(t, blob.Close())

	// Atomic put + list.
	require.NoError(t, store.Put(ctx, "runs/run-002.pfsnap", []byte("x")))
	require.NoError(t, store.Put(ctx, "other/run-003.pfsnap", []byte("y")))

	names, err := store.List(ctx, "runs/")
	require.NoError(t, err)
	sort.Strings(names)
	require.Equal(t, []string{"runs/run-001.pfsnap", "runs/run-002.pfsnap"}, names)

	// Delete is idempotent.
	require.NoError(t, store.Delete(ctx, "runs/run-002.pfsnap"))
	require.NoError(t, store.Delete(ctx, "runs/run-002.pfsnap"))
	_, err = store.Open(ctx, "runs/run-002.pfsnap")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestLocalStoreLifecycle(t *testing.T) {
	testStoreLifecycle(t, NewLocalStore(t.TempDir()))
}

func TestLocalStoreMappable(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Put(ctx, "a.bin", []byte("mapped")))

	blob, err := store.Open(ctx, "a.bin")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("mapped"), data)
}

func TestMemoryStoreOpenIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "a", []byte("one")))

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer blob.Close()

	// Overwriting after Open must not change the open handle.
	require.NoError(t, store.Put(ctx, "a", []byte("two")))
	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), got)
}

func TestOpenMissing(t *testing.T) {
	ctx := context.Background()
	for _, store := range []BlobStore{NewMemoryStore(), NewLocalStore(t.TempDir())} {
		_, err := store.Open(ctx, "missing.bin")
		require.ErrorIs(t, err, ErrNotFound)
	}
}
