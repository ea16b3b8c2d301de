package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	payload := []byte("packed frame snapshot payload")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	m, err := Open(path)
	require.NoError(t, err)

	require.Equal(t, int64(len(payload)), m.Size())
	require.Equal(t, payload, m.Bytes())

	buf := make([]byte, 6)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, []byte("frame "), buf)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close()) // idempotent
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	require.Zero(t, m.Size())
	require.NoError(t, m.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}
