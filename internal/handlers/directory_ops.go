package handlers

import (
	"context"
	"encoding/json"

	"github.com/cloudvault/vaultd/internal/command"
)

func registerDirectoryOps(registry *command.Registry, deps Deps) {
	registry.RegisterFunc(command.DirectoryCreateRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDirectoryCreate(ctx, req, deps)
	})
	registry.RegisterFunc(command.DirectoryRenameRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDirectoryRename(ctx, req, deps)
	})
	registry.RegisterFunc(command.DirectoryDeleteRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleDirectoryDelete(ctx, req, deps)
	})
}

type createDirectoryPayload struct {
	Name string
}

func handleDirectoryCreate(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	var p createDirectoryPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return command.Response{}, command.Protocol("malformed JSON payload")
	}
	if p.Name == "" {
		return command.Response{}, command.Protocol("Name is required")
	}

	parentID := storeDirID(req.Metadata["DirectoryId"])

	d, err := deps.Dirs.Create(ctx, req.UserID, p.Name, parentID)
	if err != nil {
		return command.Response{}, mapDirectoryErr(err)
	}

	body, err := json.Marshal(directoryView{
		ID:        d.ID,
		Name:      d.Name,
		ParentID:  wireDirID(d.ParentID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	})
	if err != nil {
		return command.Response{}, command.IO("failed to encode directory", err)
	}

	return command.Response{
		Command:  command.DirectoryCreateResponse,
		Metadata: map[string]string{"DirectoryId": d.ID},
		Payload:  body,
	}, nil
}

type renameDirectoryPayload struct {
	Name string
}

func handleDirectoryRename(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	dirID := req.Metadata["DirectoryId"]
	if dirID == "" || dirID == command.RootDirectoryToken {
		return command.Response{}, command.Protocol("a non-root DirectoryId is required")
	}

	var p renameDirectoryPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return command.Response{}, command.Protocol("malformed JSON payload")
	}

	if err := deps.Dirs.Rename(ctx, dirID, req.UserID, p.Name); err != nil {
		return command.Response{}, mapDirectoryErr(err)
	}

	return command.Response{Command: command.DirectoryRenameResponse}, nil
}

func handleDirectoryDelete(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	dirID := req.Metadata["DirectoryId"]
	if dirID == "" || dirID == command.RootDirectoryToken {
		return command.Response{}, command.Protocol("a non-root DirectoryId is required")
	}
	recursive := req.Metadata["Recursive"] == "true"

	failedID, err := deps.Dirs.Delete(ctx, dirID, req.UserID, recursive)
	if err != nil {
		mapped := mapDirectoryErr(err)
		if failedID != "" {
			if ce, ok := mapped.(*command.Error); ok {
				ce.Hint = "failed at directory " + failedID
			}
		}
		return command.Response{}, mapped
	}

	return command.Response{Command: command.DirectoryDeleteResponse}, nil
}
