package localfs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/storage"
)

func TestWriteAndReadChunkAt(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	require.NoError(t, err)

	dir, err := b.UserDirectory(ctx, "alice")
	require.NoError(t, err)

	path := filepath.Join(dir, "x.bin")
	require.NoError(t, b.CreateEmptyFile(ctx, path))

	n, err := b.WriteChunkAt(ctx, path, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = b.WriteChunkAt(ctx, path, 5, []byte(" world"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	data, err := b.ReadChunkAt(ctx, path, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	short, err := b.ReadChunkAt(ctx, path, 6, 3)
	require.NoError(t, err)
	assert.Equal(t, "wor", string(short))

	size, err := b.Size(ctx, path)
	require.NoError(t, err)
	assert.EqualValues(t, 11, size)
}

func TestCreateEmptyFileFailsWithoutParent(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	require.NoError(t, err)

	err = b.CreateEmptyFile(ctx, filepath.Join(b.root, "missing-dir", "x.bin"))
	assert.Error(t, err)
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	require.NoError(t, err)

	sub := filepath.Join(b.root, "a", "b")
	require.NoError(t, b.CreateDirectory(ctx, sub))
	require.NoError(t, b.CreateEmptyFile(ctx, filepath.Join(sub, "f.txt")))

	err = b.DeleteDirectory(ctx, filepath.Join(b.root, "a"), false)
	assert.Error(t, err)

	require.NoError(t, b.DeleteDirectory(ctx, filepath.Join(b.root, "a"), true))
	_, statErr := b.Size(ctx, filepath.Join(sub, "f.txt"))
	assert.ErrorIs(t, statErr, storage.ErrNotExist)
}
