package client_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/handlers"
	"github.com/cloudvault/vaultd/internal/server"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/storage/localfs"
	"github.com/cloudvault/vaultd/internal/store/identity"
	"github.com/cloudvault/vaultd/internal/store/metadata/memstore"
	vaultclient "github.com/cloudvault/vaultd/pkg/client"
)

func startTestServer(t *testing.T) string {
	registry := command.NewRegistry()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	ms := memstore.New()

	handlers.Register(registry, handlers.Deps{
		Users:     identity.NewMemStore(),
		Files:     ms,
		Dirs:      ms,
		Storage:   backend,
		ChunkSize: handlers.NewChunkSize(4),
	})

	mgr := session.NewManager(registry, 8, time.Minute)
	srv := server.New(0, mgr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	return srv.Addr().String()
}

// TestEndToEndUploadDownload dials a real TCP server, creates an account,
// uploads a multi-chunk file, and downloads it back byte for byte.
func TestEndToEndUploadDownload(t *testing.T) {
	addr := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := vaultclient.Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.CreateAccount("alice", "alice@example.com", "correct horse battery staple"))
	require.NotEmpty(t, c.UserID())

	content := []byte("the quick brown fox jumps over the lazy dog")
	fileID, err := c.UploadFile("fox.txt", "text/plain", int64(len(content)), "", bytes.NewReader(content))
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	var out bytes.Buffer
	require.NoError(t, c.DownloadFile(fileID, &out))
	require.Equal(t, content, out.Bytes())

	files, dirs, err := c.DirectoryContents("")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, dirs, 0)
}

// TestEndToEndAuthRequired asserts that an unauthenticated call is rejected
// with UNAUTHORIZED rather than being serviced.
func TestEndToEndAuthRequired(t *testing.T) {
	addr := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := vaultclient.Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.DirectoryContents("")
	require.Error(t, err)
}
