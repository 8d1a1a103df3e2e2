package main

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shortIDRE = regexp.MustCompile(`(?m)^\s*([0-9a-f]{8})\s`)

func addFolder(t *testing.T, env *cliEnv, name string) (dir string, shortID string) {
	t.Helper()

	dir = filepath.Join(env.Home, "Documents", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	out, code := runCLI(t, env, "add", dir)
	require.Equal(t, 0, code, out)
	require.Contains(t, out, "added")

	out, code = runCLI(t, env, "list")
	require.Equal(t, 0, code, out)
	m := shortIDRE.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	return dir, m[1]
}

func TestFolderCommands_Lifecycle(t *testing.T) {
	env := newCLIEnv(t)

	out, code := runCLI(t, env, "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "no folders tracked")

	dir, id := addFolder(t, env, "Proj")

	out, code = runCLI(t, env, "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Proj")
	assert.Contains(t, out, dir)

	out, code = runCLI(t, env, "status", id)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "synced")
	assert.Contains(t, out, dir)

	out, code = runCLI(t, env, "rename", id, "Work")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Proj -> Work")

	out, code = runCLI(t, env, "remove", id)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "removed Work")

	// the folder itself stays
	assert.DirExists(t, dir)

	out, code = runCLI(t, env, "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "no folders tracked")
}

func TestFolderCommands_AddTwiceFails(t *testing.T) {
	env := newCLIEnv(t)
	dir, _ := addFolder(t, env, "Proj")

	out, code := runCLI(t, env, "add", dir)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "already tracked")
}

func TestFolderCommands_ResolveFollowsRename(t *testing.T) {
	env := newCLIEnv(t)
	dir, id := addFolder(t, env, "Proj")

	moved := filepath.Join(filepath.Dir(dir), "Proj-renamed")
	require.NoError(t, os.Rename(dir, moved))

	out, code := runCLI(t, env, "resolve", id)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, moved)

	out, code = runCLI(t, env, "status", id)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, moved)
	assert.Contains(t, out, "synced")
}

func TestFolderCommands_Locate(t *testing.T) {
	env := newCLIEnv(t)
	_, id := addFolder(t, env, "Proj")

	other := filepath.Join(env.Home, "Desktop", "Elsewhere")
	require.NoError(t, os.MkdirAll(other, 0o755))

	out, code := runCLI(t, env, "locate", id, other)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, other)
}

func TestFolderCommands_UnknownID(t *testing.T) {
	env := newCLIEnv(t)

	out, code := runCLI(t, env, "status", "deadbeef")
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "not found")
}

func TestFolderCommands_RestoreOutsideTrash(t *testing.T) {
	env := newCLIEnv(t)
	_, id := addFolder(t, env, "Proj")

	out, code := runCLI(t, env, "restore", id)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "not in the trash")
}
