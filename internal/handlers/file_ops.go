package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudvault/vaultd/internal/command"
)

func registerFileOps(registry *command.Registry, deps Deps) {
	registry.RegisterFunc(command.FileDeleteRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleFileDelete(ctx, req, deps)
	})
	registry.RegisterFunc(command.FileMoveRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleFileMove(ctx, req, deps)
	})
}

func handleFileDelete(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	fileID := req.Metadata["FileId"]
	if fileID == "" {
		return command.Response{}, command.Protocol("FileId is required")
	}

	f, err := deps.Files.GetByID(ctx, fileID)
	if err != nil {
		return command.Response{}, mapFileErr(err)
	}
	if f.OwnerID != req.UserID {
		return command.Response{}, command.NotFound("file not found")
	}

	if err := deps.Storage.DeleteFile(ctx, f.Path); err != nil {
		return command.Response{}, command.IO("failed to delete physical file", err)
	}
	if err := deps.Files.Delete(ctx, fileID, req.UserID); err != nil {
		return command.Response{}, mapFileErr(err)
	}

	return command.Response{Command: command.FileDeleteResponse}, nil
}

// fileMovePayload is the JSON body of FILE_MOVE_REQUEST: the set of file
// IDs to move and their destination directory ("root" or an ID).
type fileMovePayload struct {
	FileIDs                []string `json:"FileIds"`
	DestinationDirectoryId string   `json:"DestinationDirectoryId"`
}

func handleFileMove(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	var p fileMovePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return command.Response{}, command.Protocol("malformed JSON payload")
	}
	if len(p.FileIDs) == 0 {
		return command.Response{}, command.Protocol("FileIds must be non-empty")
	}

	dest := storeDirID(p.DestinationDirectoryId)
	if err := deps.Files.MoveFiles(ctx, p.FileIDs, dest, req.UserID); err != nil {
		return command.Response{}, mapFileErr(err)
	}

	return command.Response{
		Command:  command.FileMoveResponse,
		Metadata: map[string]string{"Moved": strings.Join(p.FileIDs, ",")},
	}, nil
}
