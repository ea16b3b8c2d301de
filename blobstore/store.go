// Package blobstore abstracts storage of immutable snapshot blobs.
//
// Backends: MemoryStore (tests), LocalStore (filesystem, mmap-backed reads)
// and the minio subpackage for S3-compatible remote archives.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable named blobs.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a blob for streaming writes. The blob is visible
	// after Close.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to stored data.
type Blob interface {
	io.Closer

	// ReadAt reads len(p) bytes at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// Size returns the blob length in bytes.
	Size() int64
}

// Mappable is an optional interface for blobs whose full contents are
// available as a byte slice without copying. The slice is valid until the
// blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// WritableBlob is a streaming write handle.
type WritableBlob interface {
	io.Writer
	io.Closer
}

// ReadAll reads a blob's full contents. Mappable blobs are copied so the
// result outlives the blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	out := make([]byte, b.Size())
	if len(out) == 0 {
		return out, nil
	}
	n, err := b.ReadAt(ctx, out, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out[:n], nil
}
