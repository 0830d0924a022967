package handlers

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/store/metadata"
)

func registerUpload(registry *command.Registry, deps Deps) {
	registry.RegisterFunc(command.FileUploadInitRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleUploadInit(ctx, req, deps)
	})
	registry.RegisterFunc(command.FileUploadChunkRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleUploadChunk(ctx, req, deps)
	})
	registry.RegisterFunc(command.FileUploadCompleteRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleUploadComplete(ctx, req, deps)
	})
}

type uploadInitPayload struct {
	FileName    string
	Size        int64
	ContentType string
	DirectoryId string
}

func handleUploadInit(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	var p uploadInitPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return command.Response{}, command.Protocol("malformed JSON payload")
	}
	if p.FileName == "" || p.Size < 0 {
		return command.Response{}, command.Protocol("FileName and a non-negative Size are required")
	}

	chunkSize := deps.ChunkSize.Get()
	totalChunks := int((p.Size + int64(chunkSize) - 1) / int64(chunkSize))
	if p.Size == 0 {
		totalChunks = 0
	}

	dirID := storeDirID(p.DirectoryId)

	userDir, err := deps.Storage.UserDirectory(ctx, req.UserID)
	if err != nil {
		return command.Response{}, command.IO("failed to resolve user storage", err)
	}

	f, err := deps.Files.Add(ctx, metadata.FileMetadata{
		OwnerID:        req.UserID,
		Name:           p.FileName,
		ContentType:    p.ContentType,
		DeclaredSize:   p.Size,
		DirectoryID:    dirID,
		TotalChunks:    totalChunks,
		ChunksReceived: 0,
		IsComplete:     false,
	})
	if err != nil {
		return command.Response{}, mapFileErr(err)
	}

	physicalPath := filepath.Join(userDir, f.ID+".part")
	if err := deps.Storage.CreateEmptyFile(ctx, physicalPath); err != nil {
		_ = deps.Files.Delete(ctx, f.ID, req.UserID)
		return command.Response{}, command.IO("failed to allocate file", err)
	}
	f.Path = physicalPath
	if err := deps.Files.Update(ctx, f); err != nil {
		return command.Response{}, mapFileErr(err)
	}

	if s := session.FromContext(ctx); s != nil {
		s.PutTransfer(f.ID, &session.Transfer{
			FileID:       f.ID,
			Kind:         session.KindUpload,
			TotalChunks:  totalChunks,
			NextChunk:    0,
			ChunkSize:    chunkSize,
			Path:         physicalPath,
			DeclaredSize: p.Size,
		})
	}

	return command.Response{
		Command: command.FileUploadInitResponse,
		Metadata: map[string]string{
			"FileId":      f.ID,
			"ChunkSize":   strconv.Itoa(chunkSize),
			"TotalChunks": strconv.Itoa(totalChunks),
		},
	}, nil
}

type chunkMeta struct {
	FileId      string
	ChunkIndex  int
	IsLastChunk bool
}

func decodeChunkMeta(meta map[string]string) (chunkMeta, error) {
	var c chunkMeta
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return c, command.IO("failed to build metadata decoder", err)
	}
	if err := decoder.Decode(meta); err != nil {
		return c, command.Protocol("malformed chunk metadata: " + err.Error())
	}
	return c, nil
}

func handleUploadChunk(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
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
		return command.Response{}, command.StateViolation("no upload in progress for this file", "call FILE_UPLOAD_INIT_REQUEST first")
	}

	if c.ChunkIndex != t.NextExpected() {
		return command.Response{}, command.StateViolation("chunk received out of order",
			"expected chunk index "+strconv.Itoa(t.NextExpected()))
	}

	offset := int64(c.ChunkIndex) * int64(t.ChunkSize)
	n, err := deps.Storage.WriteChunkAt(ctx, t.Path, offset, req.Payload)
	if err != nil {
		return command.Response{}, command.IO("failed to write chunk", err)
	}

	t.NextChunk++
	t.BytesSoFar += int64(n)
	s.PutTransfer(c.FileId, t)

	f, err := deps.Files.GetByID(ctx, c.FileId)
	if err != nil {
		return command.Response{}, mapFileErr(err)
	}
	f.ChunksReceived = t.NextChunk
	if err := deps.Files.Update(ctx, f); err != nil {
		return command.Response{}, mapFileErr(err)
	}

	return command.Response{
		Command: command.FileUploadChunkResponse,
		Metadata: map[string]string{
			"FileId":     c.FileId,
			"ChunkIndex": strconv.Itoa(c.ChunkIndex),
		},
	}, nil
}

func handleUploadComplete(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	fileID := req.Metadata["FileId"]
	if fileID == "" {
		return command.Response{}, command.Protocol("FileId is required")
	}

	s := session.FromContext(ctx)
	if s == nil {
		return command.Response{}, command.IO("no session in context", nil)
	}
	t, ok := s.Transfer(fileID)
	if !ok {
		return command.Response{}, command.StateViolation("no upload in progress for this file", "call FILE_UPLOAD_INIT_REQUEST first")
	}

	f, err := deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return command.Response{}, mapFileErr(err)
	}

	if t.NextChunk != t.TotalChunks {
		return command.Response{}, command.StateViolation("not all chunks received",
			"expected chunk index "+strconv.Itoa(t.NextChunk))
	}

	size, err := deps.Storage.Size(ctx, t.Path)
	if err != nil {
		return command.Response{}, command.IO("failed to stat uploaded file", err)
	}
	if size != f.DeclaredSize {
		return command.Response{}, command.StateViolation("uploaded size does not match declared size", "")
	}

	f.IsComplete = true
	f.ChunksReceived = f.TotalChunks
	if err := deps.Files.Update(ctx, f); err != nil {
		return command.Response{}, mapFileErr(err)
	}

	s.DropTransfer(fileID)

	return command.Response{Command: command.FileUploadCompleteResponse, Metadata: map[string]string{"FileId": fileID}}, nil
}
