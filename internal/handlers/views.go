package handlers

import (
	"errors"

	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/store/metadata"
)

func toFileViews(files []metadata.FileMetadata) []fileView {
	out := make([]fileView, 0, len(files))
	for _, f := range files {
		out = append(out, fileView{
			ID:          f.ID,
			Name:        f.Name,
			ContentType: f.ContentType,
			Size:        f.DeclaredSize,
			DirectoryID: wireDirID(f.DirectoryID),
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
		})
	}
	return out
}

func toDirectoryViews(dirs []metadata.Directory) []directoryView {
	out := make([]directoryView, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, directoryView{
			ID:        d.ID,
			Name:      d.Name,
			ParentID:  wireDirID(d.ParentID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return out
}

// mapFileErr converts a metadata file-store error to the client-visible
// kind per §7 (NotFound never distinguishes "absent" from "not yours").
func mapFileErr(err error) error {
	switch {
	case errors.Is(err, metadata.ErrNotFound), errors.Is(err, metadata.ErrForbidden):
		return command.NotFound("file not found")
	case errors.Is(err, metadata.ErrDuplicateName):
		return command.Conflict("a file with that name already exists in the directory")
	default:
		return command.IO("file store error", err)
	}
}

func mapDirectoryErr(err error) error {
	switch {
	case errors.Is(err, metadata.ErrDirectoryNotFound), errors.Is(err, metadata.ErrDirectoryForbidden):
		return command.NotFound("directory not found")
	case errors.Is(err, metadata.ErrSiblingExists):
		return command.Conflict("a sibling directory with that name already exists")
	case errors.Is(err, metadata.ErrDirectoryNotEmpty):
		return command.Conflict("directory is not empty")
	default:
		return command.IO("directory store error", err)
	}
}
