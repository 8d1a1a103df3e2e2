package handlers

import (
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
)

type AddFolderRequest struct {
	Path string `json:"path" binding:"required"`
	Name string `json:"name"`
}

type RenameFolderRequest struct {
	Name string `json:"name" binding:"required"`
}

type LocateFolderRequest struct {
	Path string `json:"path" binding:"required"`
}

type FolderResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Path      string             `json:"path"`
	State     folder.State       `json:"state"`
	Status    *folder.SyncStatus `json:"status,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type FolderListResponse struct {
	Folders []*FolderResponse `json:"folders"`
}

type FolderStatusResponse struct {
	ID          string            `json:"id"`
	State       folder.State      `json:"state"`
	Status      folder.SyncStatus `json:"status"`
	NeedsSearch bool              `json:"needsSearch"`
	Searching   bool              `json:"searching"`
}

type ResolveResponse struct {
	ID     string           `json:"id"`
	Result *resolver.Result `json:"result"`
}
