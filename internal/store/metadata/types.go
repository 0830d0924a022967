// Package metadata implements the file metadata store (C4) and directory
// store (C5): the tree of directories and file records each user owns,
// independent of where the bytes physically live (internal/storage).
package metadata

import "time"

// FileMetadata is the per-file record described in spec §3. Path is the
// backing physical path chosen by internal/storage; it is never exposed on
// the wire.
type FileMetadata struct {
	ID              string
	OwnerID         string
	Name            string
	ContentType     string
	DeclaredSize    int64
	DirectoryID     string // "" means root
	Path            string
	TotalChunks     int
	ChunksReceived  int
	IsComplete      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Directory is the directory node described in spec §3. ParentID is ""
// for a user's implicit root.
type Directory struct {
	ID        string
	OwnerID   string
	Name      string
	ParentID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
