package handlers

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvault/vaultd/internal/auth"
	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/storage/localfs"
	"github.com/cloudvault/vaultd/internal/store/identity"
	"github.com/cloudvault/vaultd/internal/store/metadata/memstore"
)

func newTestDeps(t *testing.T) Deps {
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	ms := memstore.New()
	return Deps{
		Users:     identity.NewMemStore(),
		Files:     ms,
		Dirs:      ms,
		Storage:   backend,
		ChunkSize: NewChunkSize(1024 * 1024),
	}
}

// newTestSession returns a live *Session (backed by an in-memory pipe, so
// its reader/writer loops never actually run) and a ctx it is bound into;
// closing the pipe is registered with t.Cleanup.
func newTestSession(t *testing.T, userID string) (*session.Session, context.Context) {
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	s := session.New(context.Background(), server, command.NewRegistry())
	if userID != "" {
		s.Authenticate(userID)
	}
	return s, session.WithSession(context.Background(), s)
}

func createUser(t *testing.T, deps Deps, username string) identity.User {
	v, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	u, err := deps.Users.CreateUser(context.Background(), username, "", identity.RoleUser, identity.PasswordVerifier(v))
	require.NoError(t, err)
	return u
}

// TestUploadDownloadRoundTrip exercises S3: a 3-chunk upload followed by a
// full pull-based download, asserting byte-for-byte equality.
func TestUploadDownloadRoundTrip(t *testing.T) {
	deps := newTestDeps(t)
	alice := createUser(t, deps, "alice")
	_, ctx := newTestSession(t, alice.ID)

	const chunkSize = 4
	deps.ChunkSize.Set(chunkSize)
	content := []byte("AAAABBBBCC") // 10 bytes: chunks of 4,4,2

	initResp, err := handleUploadInit(ctx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"FileName":"x.bin","Size":10,"ContentType":"application/octet-stream"}`),
	}, deps)
	require.NoError(t, err)
	fileID := initResp.Metadata["FileId"]
	require.NotEmpty(t, fileID)

	for i := 0; i*chunkSize < len(content); i++ {
		end := (i + 1) * chunkSize
		if end > len(content) {
			end = len(content)
		}
		_, err := handleUploadChunk(ctx, command.Request{
			UserID: alice.ID,
			Metadata: map[string]string{
				"FileId":     fileID,
				"ChunkIndex": itoa(i),
			},
			Payload: content[i*chunkSize : end],
		}, deps)
		require.NoError(t, err)
	}

	_, err = handleUploadComplete(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"FileId": fileID},
	}, deps)
	require.NoError(t, err)

	downInit, err := handleDownloadInit(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"FileId": fileID},
	}, deps)
	require.NoError(t, err)
	assert.Equal(t, "3", downInit.Metadata["TotalChunks"])

	var got []byte
	for i := 0; i < 3; i++ {
		resp, err := handleDownloadChunk(ctx, command.Request{
			UserID:   alice.ID,
			Metadata: map[string]string{"FileId": fileID, "ChunkIndex": itoa(i)},
		}, deps)
		require.NoError(t, err)
		got = append(got, resp.Payload...)
	}
	assert.Equal(t, content, got)
}

// TestUploadOutOfOrderChunkFails exercises S4.
func TestUploadOutOfOrderChunkFails(t *testing.T) {
	deps := newTestDeps(t)
	deps.ChunkSize.Set(4)
	alice := createUser(t, deps, "alice")
	_, ctx := newTestSession(t, alice.ID)

	initResp, err := handleUploadInit(ctx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"FileName":"x.bin","Size":8,"ContentType":"application/octet-stream"}`),
	}, deps)
	require.NoError(t, err)
	fileID := initResp.Metadata["FileId"]

	_, err = handleUploadChunk(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"FileId": fileID, "ChunkIndex": "1"},
		Payload:  []byte("BBBB"),
	}, deps)

	var cmdErr *command.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, command.KindStateViolation, cmdErr.Kind)

	f, getErr := deps.Files.GetByID(ctx, fileID)
	require.NoError(t, getErr)
	assert.False(t, f.IsComplete)

	// A subsequent, correctly ordered upload of a fresh file still
	// succeeds on the same session.
	initResp2, err := handleUploadInit(ctx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"FileName":"y.bin","Size":4,"ContentType":"application/octet-stream"}`),
	}, deps)
	require.NoError(t, err)
	_, err = handleUploadChunk(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"FileId": initResp2.Metadata["FileId"], "ChunkIndex": "0"},
		Payload:  []byte("ZZZZ"),
	}, deps)
	assert.NoError(t, err)
}

// TestCrossUserIsolation exercises S5.
func TestCrossUserIsolation(t *testing.T) {
	deps := newTestDeps(t)
	deps.ChunkSize.Set(1024)
	alice := createUser(t, deps, "alice")
	bob := createUser(t, deps, "bob")
	_, aliceCtx := newTestSession(t, alice.ID)
	_, bobCtx := newTestSession(t, bob.ID)

	initResp, err := handleUploadInit(aliceCtx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"FileName":"secret.bin","Size":4,"ContentType":"application/octet-stream"}`),
	}, deps)
	require.NoError(t, err)
	fileID := initResp.Metadata["FileId"]
	_, err = handleUploadChunk(aliceCtx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"FileId": fileID, "ChunkIndex": "0"},
		Payload:  []byte("secr"),
	}, deps)
	require.NoError(t, err)
	_, err = handleUploadComplete(aliceCtx, command.Request{UserID: alice.ID, Metadata: map[string]string{"FileId": fileID}}, deps)
	require.NoError(t, err)

	_, err = handleDownloadInit(bobCtx, command.Request{
		UserID:   bob.ID,
		Metadata: map[string]string{"FileId": fileID},
	}, deps)

	var cmdErr *command.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, command.KindNotFound, cmdErr.Kind)

	err = handleFileDeleteForTest(bobCtx, bob.ID, fileID, deps)
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, command.KindNotFound, cmdErr.Kind)
}

func handleFileDeleteForTest(ctx context.Context, userID, fileID string, deps Deps) error {
	_, err := handleFileDelete(ctx, command.Request{UserID: userID, Metadata: map[string]string{"FileId": fileID}}, deps)
	return err
}

// TestDirectoryTreeLifecycle exercises S6.
func TestDirectoryTreeLifecycle(t *testing.T) {
	deps := newTestDeps(t)
	alice := createUser(t, deps, "alice")
	_, ctx := newTestSession(t, alice.ID)

	docs, err := handleDirectoryCreate(ctx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"Name":"docs"}`),
	}, deps)
	require.NoError(t, err)
	docsID := docs.Metadata["DirectoryId"]

	y2024, err := handleDirectoryCreate(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"DirectoryId": docsID},
		Payload:  []byte(`{"Name":"2024"}`),
	}, deps)
	require.NoError(t, err)
	y2024ID := y2024.Metadata["DirectoryId"]

	initResp, err := handleUploadInit(ctx, command.Request{
		UserID:  alice.ID,
		Payload: []byte(`{"FileName":"report.pdf","Size":0,"ContentType":"application/pdf","DirectoryId":"` + y2024ID + `"}`),
	}, deps)
	require.NoError(t, err)
	_, err = handleUploadComplete(ctx, command.Request{UserID: alice.ID, Metadata: map[string]string{"FileId": initResp.Metadata["FileId"]}}, deps)
	require.NoError(t, err)

	contents, err := handleDirectoryContents(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"DirectoryId": docsID},
	}, deps)
	require.NoError(t, err)
	assert.Contains(t, string(contents.Payload), `"directories":[{"Id":"`+y2024ID)

	_, err = handleDirectoryDelete(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"DirectoryId": docsID},
	}, deps)
	var cmdErr *command.Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, command.KindConflict, cmdErr.Kind)

	_, err = handleDirectoryDelete(ctx, command.Request{
		UserID:   alice.ID,
		Metadata: map[string]string{"DirectoryId": docsID, "Recursive": "true"},
	}, deps)
	require.NoError(t, err)

	rootContents, err := handleDirectoryContents(ctx, command.Request{
		UserID: alice.ID,
	}, deps)
	require.NoError(t, err)
	assert.NotContains(t, string(rootContents.Payload), `"Name":"docs"`)
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}
