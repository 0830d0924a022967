package handlers

import (
	"context"
	"strconv"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/session"
)

func registerDownload(registry *command.Registry, deps Deps) {
	registry.RegisterFunc(command.FileDownloadInitRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDownloadInit(ctx, req, deps)
	})
	registry.RegisterFunc(command.FileDownloadChunkRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDownloadChunk(ctx, req, deps)
	})
	registry.RegisterFunc(command.FileDownloadCompleteRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDownloadComplete(ctx, req, deps)
	})
}

func handleDownloadInit(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	fileID := req.Metadata["FileId"]
	if fileID == "" {
		return command.Response{}, command.Protocol("FileId is required")
	}

	f, err := deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return command.Response{}, mapFileErr(err)
	}
	// §7: the server never distinguishes "absent" from "not yours", and
	// an incomplete file is invisible to anyone including its owner via
	// listings, so the same NotFound covers both cases here too.
	if f.OwnerID != req.UserID || !f.IsComplete {
		return command.Response{}, command.NotFound("file not found")
	}

	chunkSize := deps.ChunkSize.Get()
	totalChunks := f.TotalChunks

	s := session.FromContext(ctx)
	if s != nil {
		s.PutTransfer(fileID, &session.Transfer{
			FileID:       fileID,
			Kind:         session.KindDownload,
			TotalChunks:  totalChunks,
			NextChunk:    0,
			ChunkSize:    chunkSize,
			Path:         f.Path,
			DeclaredSize: f.DeclaredSize,
		})
	}

	return command.Response{
		Command: command.FileDownloadInitResponse,
		Metadata: map[string]string{
			"FileId":      fileID,
			"TotalChunks": strconv.Itoa(totalChunks),
			"ChunkSize":   strconv.Itoa(chunkSize),
			"ContentType": f.ContentType,
			"FileSize":    strconv.FormatInt(f.DeclaredSize, 10),
		},
	}, nil
}

func handleDownloadChunk(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	c, err := decodeChunkMeta(req.Metadata)
	if err != nil {
		return command.Response{}, err
	}
	if c.FileId == "" {
		return command.Response{}, command.Protocol("FileId is required")
	}

	s := session.FromContext(ctx)
	if s == nil {
		return command.Response{}, command.IO("no session in context", nil)
	}
	t, ok := s.Transfer(c.FileId)
	if !ok {
		return command.Response{}, command.StateViolation("no download in progress for this file", "call FILE_DOWNLOAD_INIT_REQUEST first")
	}

	// Downloads are client-driven (pull); unlike uploads, a client may
	// legitimately re-request the current chunk after a transport hiccup,
	// so only a chunk index ahead of NextExpected is out of order.
	if c.ChunkIndex > t.NextExpected() {
		return command.Response{}, command.StateViolation("chunk requested out of order",
			"expected chunk index "+strconv.Itoa(t.NextExpected()))
	}

	offset := int64(c.ChunkIndex) * int64(t.ChunkSize)
	remaining := t.DeclaredSize - offset
	want := t.ChunkSize
	if int64(want) > remaining {
		want = int(remaining)
	}

	data, err := deps.Storage.ReadChunkAt(ctx, t.Path, offset, want)
	if err != nil {
		return command.Response{}, command.IO("failed to read chunk", err)
	}

	isLast := c.ChunkIndex == t.TotalChunks-1
	if c.ChunkIndex == t.NextExpected() {
		t.NextChunk++
		s.PutTransfer(c.FileId, t)
	}

	return command.Response{
		Command: command.FileDownloadChunkResponse,
		Metadata: map[string]string{
			"FileId":      c.FileId,
			"ChunkIndex":  strconv.Itoa(c.ChunkIndex),
			"IsLastChunk": strconv.FormatBool(isLast),
		},
		Payload: data,
	}, nil
}

func handleDownloadComplete(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	fileID := req.Metadata["FileId"]
	if fileID == "" {
		return command.Response{}, command.Protocol("FileId is required")
	}

	if s := session.FromContext(ctx); s != nil {
		s.DropTransfer(fileID)
	}

	return command.Response{Command: command.FileDownloadCompleteResponse, Metadata: map[string]string{"FileId": fileID}}, nil
}
