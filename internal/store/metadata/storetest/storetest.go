// Package storetest is a conformance suite run against every metadata
// backend (memstore now; sqlstore and badgerstore per SPEC_FULL's domain
// stack section reuse the same suite) so the backends cannot silently
// diverge on the invariants in spec §4.3/§4.4.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/store/metadata"
)

// Backend is the pair of stores under test; a backend's constructor
// supplies both since several backends share one underlying connection.
type Backend struct {
	Files metadata.FileStore
	Dirs  metadata.DirectoryStore
}

// Run exercises Backend against the shared invariants. New is called once
// per subtest so each gets an isolated, empty store.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("UniqueCompletedFileNamePerDirectory", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		f1 := metadata.FileMetadata{OwnerID: "alice", Name: "a.txt", IsComplete: true, TotalChunks: 1, ChunksReceived: 1}
		_, err := b.Files.Add(ctx, f1)
		require.NoError(t, err)

		_, err = b.Files.Add(ctx, f1)
		assert.ErrorIs(t, err, metadata.ErrDuplicateName)
	})

	t.Run("ListingExcludesOtherOwnersAndIncompleteFiles", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, err := b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "alice", Name: "done.txt", IsComplete: true})
		require.NoError(t, err)
		_, err = b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "alice", Name: "partial.txt", IsComplete: false})
		require.NoError(t, err)
		_, err = b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "bob", Name: "bobs.txt", IsComplete: true})
		require.NoError(t, err)

		list, err := b.Files.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "done.txt", list[0].Name)
	})

	t.Run("MoveFilesIsAllOrNothing", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		f, err := b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "alice", Name: "x.txt", IsComplete: true})
		require.NoError(t, err)

		err = b.Files.MoveFiles(ctx, []string{f.ID, "does-not-exist"}, "", "alice")
		assert.ErrorIs(t, err, metadata.ErrNotFound)

		got, err := b.Files.GetByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.DirectoryID)
	})

	t.Run("SiblingDirectoryNamesUnique", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, err := b.Dirs.Create(ctx, "alice", "docs", "")
		require.NoError(t, err)
		_, err = b.Dirs.Create(ctx, "alice", "docs", "")
		assert.ErrorIs(t, err, metadata.ErrSiblingExists)
	})

	t.Run("DeleteNonRecursiveFailsOnNonEmpty", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		docs, err := b.Dirs.Create(ctx, "alice", "docs", "")
		require.NoError(t, err)
		_, err = b.Dirs.Create(ctx, "alice", "2024", docs.ID)
		require.NoError(t, err)

		_, err = b.Dirs.Delete(ctx, docs.ID, "alice", false)
		assert.ErrorIs(t, err, metadata.ErrDirectoryNotEmpty)
	})

	t.Run("DeleteRecursiveRemovesWholeSubtree", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		docs, err := b.Dirs.Create(ctx, "alice", "docs", "")
		require.NoError(t, err)
		y2024, err := b.Dirs.Create(ctx, "alice", "2024", docs.ID)
		require.NoError(t, err)
		_, err = b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "alice", Name: "report.pdf", DirectoryID: y2024.ID, IsComplete: true})
		require.NoError(t, err)

		failed, err := b.Dirs.Delete(ctx, docs.ID, "alice", true)
		require.NoError(t, err)
		assert.Empty(t, failed)

		_, _, err = b.Dirs.GetContents(ctx, "alice", "")
		require.NoError(t, err)
		_, err = b.Dirs.GetByID(ctx, docs.ID)
		assert.ErrorIs(t, err, metadata.ErrDirectoryNotFound)
		_, err = b.Dirs.GetByID(ctx, y2024.ID)
		assert.ErrorIs(t, err, metadata.ErrDirectoryNotFound)
	})

	t.Run("IsolationAcrossOwners", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		f, err := b.Files.Add(ctx, metadata.FileMetadata{OwnerID: "alice", Name: "secret.txt", IsComplete: true})
		require.NoError(t, err)

		err = b.Files.Delete(ctx, f.ID, "bob")
		assert.ErrorIs(t, err, metadata.ErrForbidden)
	})
}
