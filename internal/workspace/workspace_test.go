package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceSetup_CreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")

	w, err := NewWorkspace(root)
	require.NoError(t, err)
	require.NoError(t, w.Setup())

	assert.DirExists(t, w.Root)
	assert.DirExists(t, w.LogsDir)
	assert.DirExists(t, w.MetadataDir)
	assert.Equal(t, filepath.Join(root, "bookmarks.db"), w.DBPath)
	assert.NoFileExists(t, w.LockPath())
}

func TestWorkspaceLocking_SingleInstance(t *testing.T) {
	root := t.TempDir()

	w1, err := NewWorkspace(root)
	require.NoError(t, err)
	w2, err := NewWorkspace(root)
	require.NoError(t, err)

	require.NoError(t, w1.Lock())
	assert.False(t, w1.Locked())
	assert.True(t, w2.Locked())

	err = w2.Lock()
	require.ErrorIs(t, err, ErrWorkspaceLocked)

	lockPath := filepath.Join(root, ".data", "bookmarks.lock")
	assert.FileExists(t, lockPath)

	require.NoError(t, w1.Unlock())
	_, statErr := os.Stat(lockPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	require.NoError(t, w2.Lock())
	t.Cleanup(func() { _ = w2.Unlock() })
}

func TestUnlock_WithoutLockIsNoop(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, w.Unlock())
}
