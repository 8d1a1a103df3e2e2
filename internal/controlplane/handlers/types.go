package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/store"
)

const (
	CodeOk                   string = "OK"
	ErrCodeBadRequest        string = "ERR_BAD_REQUEST"
	ErrCodeNotFound          string = "ERR_NOT_FOUND"
	ErrCodeAmbiguousID       string = "ERR_AMBIGUOUS_ID"
	ErrCodeAlreadyTracked    string = "ERR_ALREADY_TRACKED"
	ErrCodeDestinationExists string = "ERR_DESTINATION_EXISTS"
	ErrCodeNotInTrash        string = "ERR_NOT_IN_TRASH"
	ErrCodeUnresolved        string = "ERR_UNRESOLVED"
	ErrCodeStoreUnavailable  string = "ERR_STORE_UNAVAILABLE"
	ErrCodeUnknownError      string = "ERR_UNKNOWN_ERROR"
)

type ControlPlaneResponse struct {
	Code string `json:"code"`
}

type ControlPlaneError struct {
	ErrorCode string `json:"code"`
	Error     string `json:"error"`
}

func AbortWithError(c *gin.Context, status int, code string, err error) {
	c.Abort()
	_ = c.Error(err)
	c.PureJSON(status, ControlPlaneError{
		ErrorCode: code,
		Error:     err.Error(),
	})
}

// AbortWithFolderError maps resolver and store errors onto HTTP statuses
func AbortWithFolderError(c *gin.Context, err error) {
	status, code := classify(err)
	AbortWithError(c, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, store.ErrAmbiguous):
		return http.StatusConflict, ErrCodeAmbiguousID
	case errors.Is(err, resolver.ErrAlreadyTracked), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, ErrCodeAlreadyTracked
	case errors.Is(err, resolver.ErrDestinationExists):
		return http.StatusConflict, ErrCodeDestinationExists
	case errors.Is(err, resolver.ErrNotInTrash):
		return http.StatusConflict, ErrCodeNotInTrash
	case errors.Is(err, resolver.ErrUnresolved):
		return http.StatusNotFound, ErrCodeUnresolved
	case errors.Is(err, resolver.ErrInTrash),
		errors.Is(err, folder.ErrNotDirectory),
		errors.Is(err, folder.ErrEmptyName):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, store.ErrNoModelContext),
		errors.Is(err, store.ErrPersistenceUnavailable),
		errors.Is(err, resolver.ErrClosed):
		return http.StatusServiceUnavailable, ErrCodeStoreUnavailable
	}
	return http.StatusInternalServerError, ErrCodeUnknownError
}
