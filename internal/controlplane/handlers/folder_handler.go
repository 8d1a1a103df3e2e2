package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
)

// FolderService is what the control plane needs from the resolver
type FolderService interface {
	Add(ctx context.Context, path, name string) (*folder.TrackedFolder, error)
	Remove(ctx context.Context, id string) error
	Rename(ctx context.Context, id, name string) (*folder.TrackedFolder, error)
	List(ctx context.Context) ([]*folder.TrackedFolder, error)
	Find(ctx context.Context, idOrPrefix string) (*folder.TrackedFolder, error)
	State(id string) (folder.State, folder.SyncStatus, error)
	Status(ctx context.Context, id string) (folder.SyncStatus, bool, error)
	Searching(id string) bool
	ResolveAndUpdate(ctx context.Context, id string, prompt bool) (*resolver.Result, error)
	Locate(ctx context.Context, id, path string) (*resolver.Result, error)
	RestoreFromTrash(ctx context.Context, id string) (*resolver.Result, error)
	Subscribe() <-chan *resolver.Event
	Unsubscribe(ch <-chan *resolver.Event)
}

type FolderHandler struct {
	svc FolderService
}

func NewFolderHandler(svc FolderService) *FolderHandler {
	return &FolderHandler{svc: svc}
}

// List returns every tracked folder with its last known state
func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.svc.List(c.Request.Context())
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}

	resp := &FolderListResponse{Folders: make([]*FolderResponse, 0, len(folders))}
	for _, f := range folders {
		resp.Folders = append(resp.Folders, h.toResponse(f, false))
	}
	c.PureJSON(http.StatusOK, resp)
}

func (h *FolderHandler) Add(c *gin.Context) {
	var req AddFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	f, err := h.svc.Add(c.Request.Context(), req.Path, req.Name)
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}
	c.PureJSON(http.StatusCreated, h.toResponse(f, true))
}

func (h *FolderHandler) Get(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}
	c.PureJSON(http.StatusOK, h.toResponse(f, true))
}

func (h *FolderHandler) Rename(c *gin.Context) {
	var req RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}
	f, ok := h.find(c)
	if !ok {
		return
	}

	f, err := h.svc.Rename(c.Request.Context(), f.ID, req.Name)
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}
	c.PureJSON(http.StatusOK, h.toResponse(f, true))
}

func (h *FolderHandler) Delete(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), f.ID); err != nil {
		AbortWithFolderError(c, err)
		return
	}
	c.PureJSON(http.StatusOK, &ControlPlaneResponse{Code: CodeOk})
}

// Status evaluates the folder now without changing anything
func (h *FolderHandler) Status(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}

	status, needsSearch, err := h.svc.Status(c.Request.Context(), f.ID)
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}
	state, _, _ := h.svc.State(f.ID)
	c.PureJSON(http.StatusOK, &FolderStatusResponse{
		ID:          f.ID,
		State:       state,
		Status:      status,
		NeedsSearch: needsSearch,
		Searching:   h.svc.Searching(f.ID),
	})
}

// Resolve runs every automatic strategy. Nobody can answer a picker over HTTP.
func (h *FolderHandler) Resolve(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}
	res, err := h.svc.ResolveAndUpdate(c.Request.Context(), f.ID, false)
	h.respondResult(c, f.ID, res, err)
}

func (h *FolderHandler) Locate(c *gin.Context) {
	var req LocateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}
	f, ok := h.find(c)
	if !ok {
		return
	}
	res, err := h.svc.Locate(c.Request.Context(), f.ID, req.Path)
	h.respondResult(c, f.ID, res, err)
}

func (h *FolderHandler) Restore(c *gin.Context) {
	f, ok := h.find(c)
	if !ok {
		return
	}
	res, err := h.svc.RestoreFromTrash(c.Request.Context(), f.ID)
	h.respondResult(c, f.ID, res, err)
}

func (h *FolderHandler) respondResult(c *gin.Context, id string, res *resolver.Result, err error) {
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}
	c.PureJSON(http.StatusOK, &ResolveResponse{ID: id, Result: res})
}

// find resolves the :id parameter, which may be a unique prefix
func (h *FolderHandler) find(c *gin.Context) (*folder.TrackedFolder, bool) {
	f, err := h.svc.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithFolderError(c, err)
		return nil, false
	}
	return f, true
}

func (h *FolderHandler) toResponse(f *folder.TrackedFolder, withStatus bool) *FolderResponse {
	state, status, err := h.svc.State(f.ID)
	resp := &FolderResponse{
		ID:        f.ID,
		Name:      f.Name,
		Path:      f.StoredPath,
		State:     state,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if withStatus {
		resp.Status = &status
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
