package client

import (
	"encoding/json"

	"github.com/cloudvault/vaultd/internal/command"
)

// DirectoryContents lists the files and subdirectories directly under
// directoryID ("" for root), per DIRECTORY_CONTENTS_REQUEST (§6).
func (c *Client) DirectoryContents(directoryID string) (files, directories []json.RawMessage, err error) {
	resp, err := c.Call(command.DirectoryContentsRequest, map[string]string{"DirectoryId": wireDir(directoryID)}, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := asError(resp); err != nil {
		return nil, nil, err
	}

	var body struct {
		Files       []json.RawMessage `json:"files"`
		Directories []json.RawMessage `json:"directories"`
	}
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return nil, nil, err
	}
	return body.Files, body.Directories, nil
}

// CreateDirectory creates a directory named name under parentID ("" for
// root) and returns its new ID.
func (c *Client) CreateDirectory(parentID, name string) (string, error) {
	body, _ := json.Marshal(struct{ Name string }{name})
	resp, err := c.Call(command.DirectoryCreateRequest, map[string]string{"DirectoryId": wireDir(parentID)}, body)
	if err != nil {
		return "", err
	}
	if err := asError(resp); err != nil {
		return "", err
	}
	return resp.Metadata["DirectoryId"], nil
}

// RenameDirectory renames directoryID to newName.
func (c *Client) RenameDirectory(directoryID, newName string) error {
	body, _ := json.Marshal(struct{ Name string }{newName})
	resp, err := c.Call(command.DirectoryRenameRequest, map[string]string{"DirectoryId": directoryID}, body)
	if err != nil {
		return err
	}
	return asError(resp)
}

// DeleteDirectory deletes directoryID. With recursive=false the call fails
// (Conflict) if the directory has any children.
func (c *Client) DeleteDirectory(directoryID string, recursive bool) error {
	meta := map[string]string{"DirectoryId": directoryID}
	if recursive {
		meta["Recursive"] = "true"
	}
	resp, err := c.Call(command.DirectoryDeleteRequest, meta, nil)
	if err != nil {
		return err
	}
	return asError(resp)
}

// DeleteFile deletes fileID and its physical bytes.
func (c *Client) DeleteFile(fileID string) error {
	resp, err := c.Call(command.FileDeleteRequest, map[string]string{"FileId": fileID}, nil)
	if err != nil {
		return err
	}
	return asError(resp)
}

// MoveFiles moves the given file IDs into destinationDirectoryID ("" for
// root), all-or-nothing.
func (c *Client) MoveFiles(fileIDs []string, destinationDirectoryID string) error {
	body, _ := json.Marshal(struct {
		FileIds                []string
		DestinationDirectoryId string
	}{fileIDs, wireDir(destinationDirectoryID)})

	resp, err := c.Call(command.FileMoveRequest, nil, body)
	if err != nil {
		return err
	}
	return asError(resp)
}
