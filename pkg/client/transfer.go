package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cloudvault/vaultd/internal/command"
)

// UploadFile pushes all of r's bytes as a new file under directoryID ("" or
// command.RootDirectoryToken for root), driving FILE_UPLOAD_INIT_REQUEST
// followed by strictly ordered FILE_UPLOAD_CHUNK_REQUESTs and a final
// FILE_UPLOAD_COMPLETE_REQUEST, per §4.3's push model.
func (c *Client) UploadFile(name, contentType string, size int64, directoryID string, r io.Reader) (string, error) {
	body, _ := json.Marshal(struct {
		FileName    string
		Size        int64
		ContentType string
		DirectoryId string
	}{name, size, contentType, wireDir(directoryID)})

	initResp, err := c.Call(command.FileUploadInitRequest, nil, body)
	if err != nil {
		return "", err
	}
	if err := asError(initResp); err != nil {
		return "", err
	}

	fileID := initResp.Metadata["FileId"]
	chunkSize, err := strconv.Atoi(initResp.Metadata["ChunkSize"])
	if err != nil || chunkSize <= 0 {
		return "", fmt.Errorf("client: server returned invalid ChunkSize %q", initResp.Metadata["ChunkSize"])
	}

	buf := make([]byte, chunkSize)
	for idx := 0; ; idx++ {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			resp, err := c.Call(command.FileUploadChunkRequest, map[string]string{
				"FileId":     fileID,
				"ChunkIndex": strconv.Itoa(idx),
			}, buf[:n])
			if err != nil {
				return "", err
			}
			if err := asError(resp); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("client: reading upload source: %w", readErr)
		}
	}

	resp, err := c.Call(command.FileUploadCompleteRequest, map[string]string{"FileId": fileID}, nil)
	if err != nil {
		return "", err
	}
	if err := asError(resp); err != nil {
		return "", err
	}
	return fileID, nil
}

// DownloadFile pulls fileID chunk by chunk and writes its bytes to w, per
// §4.3's client-driven pull model, then sends FILE_DOWNLOAD_COMPLETE_REQUEST.
func (c *Client) DownloadFile(fileID string, w io.Writer) error {
	initResp, err := c.Call(command.FileDownloadInitRequest, map[string]string{"FileId": fileID}, nil)
	if err != nil {
		return err
	}
	if err := asError(initResp); err != nil {
		return err
	}

	totalChunks, err := strconv.Atoi(initResp.Metadata["TotalChunks"])
	if err != nil {
		return fmt.Errorf("client: server returned invalid TotalChunks %q", initResp.Metadata["TotalChunks"])
	}

	for idx := 0; idx < totalChunks; idx++ {
		resp, err := c.Call(command.FileDownloadChunkRequest, map[string]string{
			"FileId":     fileID,
			"ChunkIndex": strconv.Itoa(idx),
		}, nil)
		if err != nil {
			return err
		}
		if err := asError(resp); err != nil {
			return err
		}
		if _, err := w.Write(resp.Payload); err != nil {
			return fmt.Errorf("client: writing downloaded chunk: %w", err)
		}
	}

	resp, err := c.Call(command.FileDownloadCompleteRequest, map[string]string{"FileId": fileID}, nil)
	if err != nil {
		return err
	}
	return asError(resp)
}

func wireDir(id string) string {
	if id == "" {
		return command.RootDirectoryToken
	}
	return id
}
