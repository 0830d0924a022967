package handlers

import (
	"context"
	"encoding/json"

	"github.com/cloudvault/vaultd/internal/command"
)

func registerListings(registry *command.Registry, deps Deps) {
	// FILE_LIST is deprecated in favor of DIRECTORY_CONTENTS (SPEC_FULL
	// §9 decision 3) but remains wired since it is not named in the
	// Non-goals.
	registry.RegisterFunc(command.FileListRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleFileList(ctx, req, deps)
	})
	registry.RegisterFunc(command.DirectoryListRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDirectoryList(ctx, req, deps)
	})
	registry.RegisterFunc(command.DirectoryContentsRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDirectoryContents(ctx, req, deps)
	})
}

// handleFileList returns the files directly under the requested directory
// ("root" or a DirectoryId) owned by the caller.
func handleFileList(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	dirID := storeDirID(req.Metadata["DirectoryId"])

	files, err := deps.Files.ListByDirectory(ctx, req.UserID, dirID)
	if err != nil {
		return command.Response{}, command.IO("failed to list files", err)
	}

	body, err := json.Marshal(contentsPayload{Files: toFileViews(files)})
	if err != nil {
		return command.Response{}, command.IO("failed to encode listing", err)
	}
	return command.Response{Command: command.FileListResponse, Payload: body}, nil
}

func handleDirectoryList(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	dirID := storeDirID(req.Metadata["DirectoryId"])

	_, dirs, err := deps.Dirs.GetContents(ctx, req.UserID, dirID)
	if err != nil {
		return command.Response{}, mapDirectoryErr(err)
	}

	body, err := json.Marshal(contentsPayload{Directories: toDirectoryViews(dirs)})
	if err != nil {
		return command.Response{}, command.IO("failed to encode listing", err)
	}
	return command.Response{Command: command.DirectoryListResponse, Payload: body}, nil
}

func handleDirectoryContents(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	dirID := storeDirID(req.Metadata["DirectoryId"])

	files, dirs, err := deps.Dirs.GetContents(ctx, req.UserID, dirID)
	if err != nil {
		return command.Response{}, mapDirectoryErr(err)
	}

	body, err := json.Marshal(contentsPayload{
		Files:       toFileViews(files),
		Directories: toDirectoryViews(dirs),
	})
	if err != nil {
		return command.Response{}, command.IO("failed to encode listing", err)
	}
	return command.Response{Command: command.DirectoryContentsResponse, Payload: body}, nil
}
