package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

type EventMessage struct {
	ID      string            `json:"id"`
	State   folder.State      `json:"state"`
	Status  folder.SyncStatus `json:"status"`
	Error   string            `json:"error,omitempty"`
	Removed bool              `json:"removed,omitempty"`
	At      time.Time         `json:"at"`
}

type EventsHandler struct {
	svc FolderService
}

func NewEventsHandler(svc FolderService) *EventsHandler {
	return &EventsHandler{svc: svc}
}

// Events streams folder state changes as server-sent events
func (h *EventsHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	eventCh := h.svc.Subscribe()
	defer h.svc.Unsubscribe(eventCh)

	// send headers now so clients know the subscription is live
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			c.SSEvent("folder", &EventMessage{
				ID:      event.FolderID,
				State:   event.State,
				Status:  event.Status,
				Error:   event.Error(),
				Removed: event.Removed,
				At:      event.At,
			})
			return true
		}
	})
}
