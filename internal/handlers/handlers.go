// Package handlers implements the command handlers (C10): authentication,
// file listing, chunked upload/download, delete, move, and directory
// operations. Handlers are pure with respect to the session's transport —
// they read the session only through session.FromContext to reach the
// transfer table, never the socket (§4.6).
package handlers

import (
	"sync/atomic"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/storage"
	"github.com/cloudvault/vaultd/internal/store/identity"
	"github.com/cloudvault/vaultd/internal/store/metadata"
)

// ChunkSize holds the server's configured chunk size behind an atomic, so a
// config hot-reload (internal/config's fsnotify watcher) can adjust it for
// transfers initiated after the reload without restarting the server or
// rebuilding the command registry.
type ChunkSize struct {
	v atomic.Int64
}

// NewChunkSize returns a ChunkSize initialized to n bytes.
func NewChunkSize(n int) *ChunkSize {
	cs := &ChunkSize{}
	cs.v.Store(int64(n))
	return cs
}

// Get returns the current chunk size in bytes.
func (c *ChunkSize) Get() int { return int(c.v.Load()) }

// Set updates the chunk size in bytes.
func (c *ChunkSize) Set(n int) { c.v.Store(int64(n)) }

// Deps are the collaborators every handler needs: the three stores and the
// physical storage backend, plus the server's configured chunk size.
type Deps struct {
	Users     identity.Store
	Files     metadata.FileStore
	Dirs      metadata.DirectoryStore
	Storage   storage.Backend
	ChunkSize *ChunkSize
}

// Register populates registry with one handler per supported request
// code (§4.6).
func Register(registry *command.Registry, deps Deps) {
	registerAuth(registry, deps)
	registerListings(registry, deps)
	registerUpload(registry, deps)
	registerDownload(registry, deps)
	registerFileOps(registry, deps)
	registerDirectoryOps(registry, deps)
}
