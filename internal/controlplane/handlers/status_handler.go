package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

type StatusHandler struct {
	svc FolderService
}

func NewStatusHandler(svc FolderService) *StatusHandler {
	return &StatusHandler{svc: svc}
}

func (h *StatusHandler) Status(c *gin.Context) {
	folders, err := h.svc.List(c.Request.Context())
	if err != nil {
		AbortWithFolderError(c, err)
		return
	}

	states := make(map[string]int)
	for _, f := range folders {
		state, _, _ := h.svc.State(f.ID)
		states[string(state)]++
	}

	c.PureJSON(http.StatusOK, &StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
		Revision:  version.Revision,
		BuildDate: version.BuildDate,
		Folders:   len(folders),
		States:    states,
	})
}
