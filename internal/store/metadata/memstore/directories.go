package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloudvault/vaultd/internal/store/metadata"
)

func (s *Store) Create(ctx context.Context, ownerID, name, parentID string) (metadata.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		parent, ok := s.dirs[parentID]
		if !ok {
			return metadata.Directory{}, metadata.ErrDirectoryNotFound
		}
		if parent.OwnerID != ownerID {
			return metadata.Directory{}, metadata.ErrDirectoryForbidden
		}
	}

	if err := s.checkSiblingUniqueLocked(ownerID, parentID, name, ""); err != nil {
		return metadata.Directory{}, err
	}

	now := time.Now().UTC()
	d := metadata.Directory{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.dirs[d.ID] = d
	return d, nil
}

func (s *Store) Rename(ctx context.Context, id, ownerID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dirs[id]
	if !ok {
		return metadata.ErrDirectoryNotFound
	}
	if d.OwnerID != ownerID {
		return metadata.ErrDirectoryForbidden
	}
	if err := s.checkSiblingUniqueLocked(ownerID, d.ParentID, newName, id); err != nil {
		return err
	}
	d.Name = newName
	d.UpdatedAt = time.Now().UTC()
	s.dirs[id] = d
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (metadata.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dirs[id]
	if !ok {
		return metadata.Directory{}, metadata.ErrDirectoryNotFound
	}
	return d, nil
}

func (s *Store) GetContents(ctx context.Context, ownerID, dirID string) ([]metadata.FileMetadata, []metadata.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if dirID != "" {
		d, ok := s.dirs[dirID]
		if !ok {
			return nil, nil, metadata.ErrDirectoryNotFound
		}
		if d.OwnerID != ownerID {
			return nil, nil, metadata.ErrDirectoryForbidden
		}
	}

	var files []metadata.FileMetadata
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.DirectoryID == dirID && f.IsComplete {
			files = append(files, f)
		}
	}
	var dirs []metadata.Directory
	for _, d := range s.dirs {
		if d.OwnerID == ownerID && d.ParentID == dirID {
			dirs = append(dirs, d)
		}
	}
	return files, dirs, nil
}

// Delete removes id. With recursive=false it requires id to be empty of
// both files and subdirectories. With recursive=true it walks the subtree
// post-order (children before parent), deleting files then directories at
// each level, bottom-up, so a failure partway through leaves every
// already-deleted descendant gone and reports the node it stopped at.
func (s *Store) Delete(ctx context.Context, id, ownerID string, recursive bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dirs[id]
	if !ok {
		return id, metadata.ErrDirectoryNotFound
	}
	if d.OwnerID != ownerID {
		return id, metadata.ErrDirectoryForbidden
	}

	childFiles, childDirs := s.directChildrenLocked(ownerID, id)

	if !recursive {
		if len(childFiles) > 0 || len(childDirs) > 0 {
			return id, metadata.ErrDirectoryNotEmpty
		}
		delete(s.dirs, id)
		return "", nil
	}

	for _, sub := range childDirs {
		if failed, err := s.deleteRecursiveLocked(sub.ID, ownerID); err != nil {
			return failed, err
		}
	}
	for _, f := range childFiles {
		delete(s.files, f.ID)
	}
	delete(s.dirs, id)
	return "", nil
}

// deleteRecursiveLocked performs the post-order walk; caller holds s.mu.
func (s *Store) deleteRecursiveLocked(id, ownerID string) (string, error) {
	d, ok := s.dirs[id]
	if !ok {
		return id, metadata.ErrDirectoryNotFound
	}
	if d.OwnerID != ownerID {
		return id, metadata.ErrDirectoryForbidden
	}

	childFiles, childDirs := s.directChildrenLocked(ownerID, id)
	for _, sub := range childDirs {
		if failed, err := s.deleteRecursiveLocked(sub.ID, ownerID); err != nil {
			return failed, err
		}
	}
	for _, f := range childFiles {
		delete(s.files, f.ID)
	}
	delete(s.dirs, id)
	return "", nil
}

func (s *Store) directChildrenLocked(ownerID, dirID string) ([]metadata.FileMetadata, []metadata.Directory) {
	var files []metadata.FileMetadata
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.DirectoryID == dirID {
			files = append(files, f)
		}
	}
	var dirs []metadata.Directory
	for _, d := range s.dirs {
		if d.OwnerID == ownerID && d.ParentID == dirID {
			dirs = append(dirs, d)
		}
	}
	return files, dirs
}

func (s *Store) checkSiblingUniqueLocked(ownerID, parentID, name, excludeID string) error {
	for _, d := range s.dirs {
		if d.ID == excludeID {
			continue
		}
		if d.OwnerID == ownerID && d.ParentID == parentID && d.Name == name {
			return metadata.ErrSiblingExists
		}
	}
	return nil
}
