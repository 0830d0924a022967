// Package memstore is the in-process metadata backend: the zero-config
// default and the backend the conformance suite in storetest exercises
// fastest. It implements both metadata.FileStore and metadata.DirectoryStore
// over one shared, mutex-guarded map pair, since a directory delete must see
// a consistent view of both files and subdirectories.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudvault/vaultd/internal/store/metadata"
)

type Store struct {
	mu    sync.RWMutex
	files map[string]metadata.FileMetadata
	dirs  map[string]metadata.Directory
}

func New() *Store {
	return &Store{
		files: make(map[string]metadata.FileMetadata),
		dirs:  make(map[string]metadata.Directory),
	}
}

// --- FileStore ---

func (s *Store) GetByID(ctx context.Context, id string) (metadata.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return metadata.FileMetadata{}, metadata.ErrNotFound
	}
	return f, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]metadata.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []metadata.FileMetadata
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.IsComplete {
			out = append(out, f)
		}
	}
	return out, nil
}

// ListAll returns every file record regardless of owner or completeness.
// It has no FileStore-interface equivalent; it exists for the janitor,
// which must sweep abandoned uploads across every owner (§9 decision 4).
func (s *Store) ListAll(ctx context.Context) ([]metadata.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]metadata.FileMetadata, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	return out, nil
}

func (s *Store) ListByDirectory(ctx context.Context, ownerID, directoryID string) ([]metadata.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []metadata.FileMetadata
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.DirectoryID == directoryID && f.IsComplete {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) Add(ctx context.Context, f metadata.FileMetadata) (metadata.FileMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.IsComplete {
		if err := s.checkUniqueNameLocked(f.OwnerID, f.DirectoryID, f.Name, ""); err != nil {
			return metadata.FileMetadata{}, err
		}
	}

	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	s.files[f.ID] = f
	return f, nil
}

func (s *Store) Update(ctx context.Context, f metadata.FileMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.files[f.ID]
	if !ok {
		return metadata.ErrNotFound
	}
	if existing.OwnerID != f.OwnerID {
		return metadata.ErrForbidden
	}
	if f.IsComplete {
		if err := s.checkUniqueNameLocked(f.OwnerID, f.DirectoryID, f.Name, f.ID); err != nil {
			return err
		}
	}
	f.UpdatedAt = time.Now().UTC()
	s.files[f.ID] = f
	return nil
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return metadata.ErrNotFound
	}
	if f.OwnerID != ownerID {
		return metadata.ErrForbidden
	}
	delete(s.files, id)
	return nil
}

func (s *Store) MoveFiles(ctx context.Context, ids []string, newDirectoryID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newDirectoryID != "" {
		d, ok := s.dirs[newDirectoryID]
		if !ok {
			return metadata.ErrDirectoryNotFound
		}
		if d.OwnerID != ownerID {
			return metadata.ErrDirectoryForbidden
		}
	}

	targets := make([]metadata.FileMetadata, 0, len(ids))
	for _, id := range ids {
		f, ok := s.files[id]
		if !ok {
			return metadata.ErrNotFound
		}
		if f.OwnerID != ownerID {
			return metadata.ErrForbidden
		}
		targets = append(targets, f)
	}

	for _, f := range targets {
		if f.IsComplete {
			if err := s.checkUniqueNameLocked(ownerID, newDirectoryID, f.Name, f.ID); err != nil {
				return err
			}
		}
	}

	now := time.Now().UTC()
	for _, f := range targets {
		f.DirectoryID = newDirectoryID
		f.UpdatedAt = now
		s.files[f.ID] = f
	}
	return nil
}

func (s *Store) checkUniqueNameLocked(ownerID, directoryID, name, excludeID string) error {
	for _, f := range s.files {
		if f.ID == excludeID || !f.IsComplete {
			continue
		}
		if f.OwnerID == ownerID && f.DirectoryID == directoryID && f.Name == name {
			return metadata.ErrDuplicateName
		}
	}
	return nil
}
