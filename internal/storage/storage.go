// Package storage implements the physical storage backend (C6): the layer
// that opens, seeks, writes, reads, and deletes the bytes backing a
// FileMetadata record. It knows nothing about ownership, directories, or
// names beyond an opaque path string — that's internal/store/metadata's job.
package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned when a path has no backing file or directory.
var ErrNotExist = errors.New("storage: does not exist")

// Backend is the C6 contract. Implementations choose where the bytes live
// (local disk, S3, ...); internal/handlers never reasons about the choice.
type Backend interface {
	// UserDirectory returns a stable per-user root path, creating it if
	// missing. It is idempotent.
	UserDirectory(ctx context.Context, userID string) (string, error)

	// CreateEmptyFile creates a zero-byte file at path, failing if the
	// parent directory does not exist.
	CreateEmptyFile(ctx context.Context, path string) error

	// WriteChunkAt opens path write-exclusive, seeks to offset, and
	// writes exactly len(data) bytes.
	WriteChunkAt(ctx context.Context, path string, offset int64, data []byte) (int, error)

	// ReadChunkAt returns up to maxBytes starting at offset; a short read
	// at EOF is not an error.
	ReadChunkAt(ctx context.Context, path string, offset int64, maxBytes int) ([]byte, error)

	DeleteFile(ctx context.Context, path string) error
	MoveFile(ctx context.Context, oldPath, newPath string) error

	CreateDirectory(ctx context.Context, path string) error
	// DeleteDirectory removes path; if recursive it removes the whole
	// subtree, otherwise it fails when the directory is non-empty.
	DeleteDirectory(ctx context.Context, path string, recursive bool) error

	// Size returns the current physical size of the file at path.
	Size(ctx context.Context, path string) (int64, error)
}
