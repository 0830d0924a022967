package session

import (
	"context"
	"time"

	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/storage"
	"github.com/cloudvault/vaultd/internal/store/metadata"
)

// Janitor implements the janitor policy from SPEC_FULL §9 decision 4:
// partial (isComplete=false) FileMetadata records whose UpdatedAt is older
// than maxAge are deleted along with their partial bytes.
type Janitor struct {
	files   metadata.FileStore
	storage storage.Backend
	maxAge  time.Duration

	// list is a narrow seam for iterating every file across every owner;
	// the production FileStore interface only exposes per-owner listing,
	// so backends that want janitor support implement this directly.
	list func(ctx context.Context) ([]metadata.FileMetadata, error)
}

func NewJanitor(files metadata.FileStore, backend storage.Backend, maxAge time.Duration, list func(ctx context.Context) ([]metadata.FileMetadata, error)) *Janitor {
	return &Janitor{files: files, storage: backend, maxAge: maxAge, list: list}
}

// Run sweeps once per interval until ctx is canceled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if j.list == nil {
		return
	}
	all, err := j.list(ctx)
	if err != nil {
		logger.Warn("janitor: list failed", "error", err)
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	for _, f := range all {
		if f.IsComplete || f.UpdatedAt.After(cutoff) {
			continue
		}
		if err := j.storage.DeleteFile(ctx, f.Path); err != nil {
			logger.Warn("janitor: delete partial file failed", "file_id", f.ID, "error", err)
			continue
		}
		if err := j.files.Delete(ctx, f.ID, f.OwnerID); err != nil {
			logger.Warn("janitor: delete metadata failed", "file_id", f.ID, "error", err)
			continue
		}
		logger.Info("janitor: reaped abandoned upload", "file_id", f.ID, "owner_id", f.OwnerID)
	}
}
