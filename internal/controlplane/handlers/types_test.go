package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{store.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{store.ErrAmbiguous, http.StatusConflict, ErrCodeAmbiguousID},
		{resolver.ErrAlreadyTracked, http.StatusConflict, ErrCodeAlreadyTracked},
		{resolver.ErrDestinationExists, http.StatusConflict, ErrCodeDestinationExists},
		{resolver.ErrNotInTrash, http.StatusConflict, ErrCodeNotInTrash},
		{resolver.ErrUnresolved, http.StatusNotFound, ErrCodeUnresolved},
		{resolver.ErrInTrash, http.StatusBadRequest, ErrCodeBadRequest},
		{folder.ErrNotDirectory, http.StatusBadRequest, ErrCodeBadRequest},
		{store.ErrPersistenceUnavailable, http.StatusServiceUnavailable, ErrCodeStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, ErrCodeUnknownError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			// wrapped the way the resolver returns them
			status, code := classify(folder.WrapOp("check", "id", fmt.Errorf("ctx: %w", tc.err)))
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestAbortWithFolderError_WritesBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/folders/x", nil)

	AbortWithFolderError(c, store.ErrNotFound)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ControlPlaneError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.ErrorCode)
	assert.Equal(t, store.ErrNotFound.Error(), resp.Error)
}
