package metadata

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned for an unknown file ID.
	ErrNotFound = errors.New("metadata: file not found")
	// ErrForbidden is returned when a file exists but is not owned by the caller.
	// Handlers MUST map both ErrNotFound and ErrForbidden to the same
	// client-visible NotFound error per §7.
	ErrForbidden = errors.New("metadata: file not owned by caller")
	// ErrDuplicateName is returned by Add when name collides with another
	// complete file in the same (owner, directory).
	ErrDuplicateName = errors.New("metadata: file name already exists in directory")
)

// FileStore is the C4 file metadata store contract.
type FileStore interface {
	GetByID(ctx context.Context, id string) (FileMetadata, error)
	// ListByOwner returns every complete file owned by ownerID. Incomplete
	// files are never returned, even to their own owner, per §3.
	ListByOwner(ctx context.Context, ownerID string) ([]FileMetadata, error)
	// ListByDirectory returns complete files owned by ownerID directly
	// under directoryID ("" for root).
	ListByDirectory(ctx context.Context, ownerID, directoryID string) ([]FileMetadata, error)
	// Add persists a new, typically incomplete, file record.
	Add(ctx context.Context, f FileMetadata) (FileMetadata, error)
	Update(ctx context.Context, f FileMetadata) error
	Delete(ctx context.Context, id, ownerID string) error
	// MoveFiles moves every file in ids into newDirectoryID ("" for root)
	// as one all-or-nothing operation. Every ID must belong to ownerID and
	// newDirectoryID, if non-empty, must also belong to ownerID.
	MoveFiles(ctx context.Context, ids []string, newDirectoryID, ownerID string) error
}
