package controlplane

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

func TestClient_StatusAndFolders(t *testing.T) {
	env := newAPIEnv(t, "secret")
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	dir := filepath.Join(env.home, "Desktop", "Proj")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err := env.r.Add(context.Background(), dir, "")
	require.NoError(t, err)

	c := NewClient(srv.URL, "secret")

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.Folders)

	list, err := c.Folders(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Folders, 1)
	assert.Equal(t, "Proj", list.Folders[0].Name)
	assert.Equal(t, folder.StateSynced, list.Folders[0].State)
}

func TestClient_Unauthorized(t *testing.T) {
	env := newAPIEnv(t, "secret")
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	_, err := NewClient(srv.URL, "wrong").Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "ERR_UNAUTHORIZED")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "").Status(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAPI)
}
