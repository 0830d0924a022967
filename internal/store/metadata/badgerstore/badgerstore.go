// Package badgerstore implements metadata.FileStore and
// metadata.DirectoryStore over an embedded BadgerDB, grounded on the
// teacher's pkg/metadata/store/badger: JSON-encoded records behind
// prefixed keys, CRUD wrapped in db.Update/db.View transactions, no
// business logic beyond what the metadata package's own interfaces
// require.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/cloudvault/vaultd/internal/store/metadata"
)

const (
	fileKeyPrefix = "file:"
	dirKeyPrefix  = "dir:"
)

func fileKey(id string) []byte { return []byte(fileKeyPrefix + id) }
func dirKey(id string) []byte  { return []byte(dirKeyPrefix + id) }

// Store is a BadgerDB-backed metadata store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a BadgerDB at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encode(v any) ([]byte, error) { return json.Marshal(v) }

// --- FileStore ---

func (s *Store) GetByID(ctx context.Context, id string) (metadata.FileMetadata, error) {
	var f metadata.FileMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(id))
		if err == badger.ErrKeyNotFound {
			return metadata.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &f) })
	})
	return f, err
}

func (s *Store) forEachFile(fn func(metadata.FileMetadata) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var f metadata.FileMetadata
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &f) }); err != nil {
				return err
			}
			if err := fn(f); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]metadata.FileMetadata, error) {
	var out []metadata.FileMetadata
	err := s.forEachFile(func(f metadata.FileMetadata) error {
		if f.OwnerID == ownerID && f.IsComplete {
			out = append(out, f)
		}
		return nil
	})
	return out, err
}

func (s *Store) ListByDirectory(ctx context.Context, ownerID, directoryID string) ([]metadata.FileMetadata, error) {
	var out []metadata.FileMetadata
	err := s.forEachFile(func(f metadata.FileMetadata) error {
		if f.OwnerID == ownerID && f.DirectoryID == directoryID && f.IsComplete {
			out = append(out, f)
		}
		return nil
	})
	return out, err
}

// ListAll returns every file record across every owner, for the janitor
// sweep (§9 decision 4).
func (s *Store) ListAll(ctx context.Context) ([]metadata.FileMetadata, error) {
	var out []metadata.FileMetadata
	err := s.forEachFile(func(f metadata.FileMetadata) error {
		out = append(out, f)
		return nil
	})
	return out, err
}

func (s *Store) Add(ctx context.Context, f metadata.FileMetadata) (metadata.FileMetadata, error) {
	if f.ID == "" {
		f.ID = newUUID()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	err := s.db.Update(func(txn *badger.Txn) error {
		if f.IsComplete {
			if dup, err := s.siblingExistsTxn(txn, f.OwnerID, f.DirectoryID, f.Name, f.ID); err != nil {
				return err
			} else if dup {
				return metadata.ErrDuplicateName
			}
		}
		data, err := encode(f)
		if err != nil {
			return err
		}
		return txn.Set(fileKey(f.ID), data)
	})
	if err != nil {
		return metadata.FileMetadata{}, err
	}
	return f, nil
}

func (s *Store) siblingExistsTxn(txn *badger.Txn, ownerID, directoryID, name, excludeID string) (bool, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte(fileKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var f metadata.FileMetadata
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &f) }); err != nil {
			return false, err
		}
		if f.ID == excludeID {
			continue
		}
		if f.OwnerID == ownerID && f.DirectoryID == directoryID && f.Name == name && f.IsComplete {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Update(ctx context.Context, f metadata.FileMetadata) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(f.ID))
		if err == badger.ErrKeyNotFound {
			return metadata.ErrNotFound
		}
		if err != nil {
			return err
		}
		var existing metadata.FileMetadata
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); err != nil {
			return err
		}
		if existing.OwnerID != f.OwnerID {
			return metadata.ErrForbidden
		}
		if f.IsComplete {
			if dup, err := s.siblingExistsTxn(txn, f.OwnerID, f.DirectoryID, f.Name, f.ID); err != nil {
				return err
			} else if dup {
				return metadata.ErrDuplicateName
			}
		}
		f.UpdatedAt = time.Now().UTC()
		data, err := encode(f)
		if err != nil {
			return err
		}
		return txn.Set(fileKey(f.ID), data)
	})
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(id))
		if err == badger.ErrKeyNotFound {
			return metadata.ErrNotFound
		}
		if err != nil {
			return err
		}
		var f metadata.FileMetadata
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &f) }); err != nil {
			return err
		}
		if f.OwnerID != ownerID {
			return metadata.ErrForbidden
		}
		return txn.Delete(fileKey(id))
	})
}

func (s *Store) MoveFiles(ctx context.Context, ids []string, newDirectoryID, ownerID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if newDirectoryID != "" {
			item, err := txn.Get(dirKey(newDirectoryID))
			if err == badger.ErrKeyNotFound {
				return metadata.ErrDirectoryNotFound
			}
			if err != nil {
				return err
			}
			var d metadata.Directory
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
				return err
			}
			if d.OwnerID != ownerID {
				return metadata.ErrDirectoryForbidden
			}
		}
		files := make([]metadata.FileMetadata, 0, len(ids))
		for _, id := range ids {
			item, err := txn.Get(fileKey(id))
			if err == badger.ErrKeyNotFound {
				return metadata.ErrNotFound
			}
			if err != nil {
				return err
			}
			var f metadata.FileMetadata
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &f) }); err != nil {
				return err
			}
			if f.OwnerID != ownerID {
				return metadata.ErrForbidden
			}
			files = append(files, f)
		}
		for _, f := range files {
			f.DirectoryID = newDirectoryID
			data, err := encode(f)
			if err != nil {
				return err
			}
			if err := txn.Set(fileKey(f.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- DirectoryStore ---

func (s *Store) dirByIDTxn(txn *badger.Txn, id string) (metadata.Directory, error) {
	var d metadata.Directory
	item, err := txn.Get(dirKey(id))
	if err == badger.ErrKeyNotFound {
		return d, metadata.ErrDirectoryNotFound
	}
	if err != nil {
		return d, err
	}
	err = item.Value(func(val []byte) error { return json.Unmarshal(val, &d) })
	return d, err
}

func (s *Store) GetByID(ctx context.Context, id string) (metadata.Directory, error) {
	var d metadata.Directory
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		d, err = s.dirByIDTxn(txn, id)
		return err
	})
	return d, err
}

func (s *Store) siblingDirExistsTxn(txn *badger.Txn, ownerID, parentID, name, excludeID string) (bool, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte(dirKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var d metadata.Directory
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
			return false, err
		}
		if d.ID == excludeID {
			continue
		}
		if d.OwnerID == ownerID && d.ParentID == parentID && d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Create(ctx context.Context, ownerID, name, parentID string) (metadata.Directory, error) {
	var d metadata.Directory
	err := s.db.Update(func(txn *badger.Txn) error {
		if parentID != "" {
			if _, err := s.dirByIDTxn(txn, parentID); err != nil {
				return err
			}
		}
		if dup, err := s.siblingDirExistsTxn(txn, ownerID, parentID, name, ""); err != nil {
			return err
		} else if dup {
			return metadata.ErrSiblingExists
		}
		d = metadata.Directory{ID: newUUID(), OwnerID: ownerID, Name: name, ParentID: parentID}
		data, err := encode(d)
		if err != nil {
			return err
		}
		return txn.Set(dirKey(d.ID), data)
	})
	return d, err
}

func (s *Store) Rename(ctx context.Context, id, ownerID, newName string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		d, err := s.dirByIDTxn(txn, id)
		if err != nil {
			return err
		}
		if d.OwnerID != ownerID {
			return metadata.ErrDirectoryForbidden
		}
		if dup, err := s.siblingDirExistsTxn(txn, ownerID, d.ParentID, newName, id); err != nil {
			return err
		} else if dup {
			return metadata.ErrSiblingExists
		}
		d.Name = newName
		data, err := encode(d)
		if err != nil {
			return err
		}
		return txn.Set(dirKey(id), data)
	})
}

func (s *Store) childrenTxn(txn *badger.Txn, ownerID, dirID string) ([]metadata.FileMetadata, []metadata.Directory, error) {
	var files []metadata.FileMetadata
	fit := txn.NewIterator(badger.DefaultIteratorOptions)
	defer fit.Close()
	fprefix := []byte(fileKeyPrefix)
	for fit.Seek(fprefix); fit.ValidForPrefix(fprefix); fit.Next() {
		var f metadata.FileMetadata
		if err := fit.Item().Value(func(val []byte) error { return json.Unmarshal(val, &f) }); err != nil {
			return nil, nil, err
		}
		if f.OwnerID == ownerID && f.DirectoryID == dirID {
			files = append(files, f)
		}
	}

	var dirs []metadata.Directory
	dit := txn.NewIterator(badger.DefaultIteratorOptions)
	defer dit.Close()
	dprefix := []byte(dirKeyPrefix)
	for dit.Seek(dprefix); dit.ValidForPrefix(dprefix); dit.Next() {
		var d metadata.Directory
		if err := dit.Item().Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
			return nil, nil, err
		}
		if d.OwnerID == ownerID && d.ParentID == dirID {
			dirs = append(dirs, d)
		}
	}
	return files, dirs, nil
}

func (s *Store) GetContents(ctx context.Context, ownerID, dirID string) ([]metadata.FileMetadata, []metadata.Directory, error) {
	var files []metadata.FileMetadata
	var dirs []metadata.Directory
	err := s.db.View(func(txn *badger.Txn) error {
		if dirID != "" {
			d, err := s.dirByIDTxn(txn, dirID)
			if err != nil {
				return err
			}
			if d.OwnerID != ownerID {
				return metadata.ErrDirectoryForbidden
			}
		}
		all, allDirs, err := s.childrenTxn(txn, ownerID, dirID)
		if err != nil {
			return err
		}
		for _, f := range all {
			if f.IsComplete {
				files = append(files, f)
			}
		}
		dirs = allDirs
		return nil
	})
	return files, dirs, err
}

// Delete mirrors memstore's post-order recursive walk within a single
// transaction, so the whole subtree removal is atomic.
func (s *Store) Delete(ctx context.Context, id, ownerID string, recursive bool) (string, error) {
	var failed string
	err := s.db.Update(func(txn *badger.Txn) error {
		var walk func(id string) error
		walk = func(id string) error {
			d, err := s.dirByIDTxn(txn, id)
			if err != nil {
				failed = id
				return err
			}
			if d.OwnerID != ownerID {
				failed = id
				return metadata.ErrDirectoryForbidden
			}

			files, dirs, err := s.childrenTxn(txn, ownerID, id)
			if err != nil {
				failed = id
				return err
			}

			if !recursive {
				if len(files) > 0 || len(dirs) > 0 {
					failed = id
					return metadata.ErrDirectoryNotEmpty
				}
				return txn.Delete(dirKey(id))
			}

			for _, sub := range dirs {
				if err := walk(sub.ID); err != nil {
					return err
				}
			}
			for _, f := range files {
				if err := txn.Delete(fileKey(f.ID)); err != nil {
					failed = id
					return err
				}
			}
			return txn.Delete(dirKey(id))
		}
		return walk(id)
	})
	if err != nil {
		return failed, err
	}
	return "", nil
}

func newUUID() string {
	return uuid.NewString()
}
