// Package localfs is the default physical storage backend: files live on
// the local filesystem under a configured root, one subdirectory per user.
package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/cloudvault/vaultd/internal/storage"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Backend is a storage.Backend rooted at a single directory on disk.
type Backend struct {
	root string
}

func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("localfs: root is required")
	}
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, err
	}
	return &Backend{root: root}, nil
}

func (b *Backend) UserDirectory(ctx context.Context, userID string) (string, error) {
	path := filepath.Join(b.root, "users", userID)
	if err := os.MkdirAll(path, dirMode); err != nil {
		return "", err
	}
	return path, nil
}

func (b *Backend) CreateEmptyFile(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return storage.ErrNotExist
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return err
	}
	return f.Close()
}

func (b *Backend) WriteChunkAt(ctx context.Context, path string, offset int64, data []byte) (int, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, fileMode)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, storage.ErrNotExist
		}
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return f.Write(data)
}

func (b *Backend) ReadChunkAt(ctx context.Context, path string, offset int64, maxBytes int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotExist
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, maxBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *Backend) MoveFile(ctx context.Context, oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), dirMode); err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	return os.MkdirAll(path, dirMode)
}

func (b *Backend) DeleteDirectory(ctx context.Context, path string, recursive bool) error {
	if recursive {
		return os.RemoveAll(path)
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *Backend) Size(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, storage.ErrNotExist
		}
		return 0, err
	}
	return info.Size(), nil
}

var _ storage.Backend = (*Backend)(nil)
