package trash

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInTrash_HomeTrashBoundaries(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	d := NewDetector(WithHome(home), WithoutVolumes())

	trash := d.HomeTrash()
	require.NotEmpty(t, trash)

	assert.True(t, d.IsInTrash(trash))
	assert.True(t, d.IsInTrash(filepath.Join(trash, "files", "Proj")))
	assert.False(t, d.IsInTrash(filepath.Join(home, "Proj")))
	assert.False(t, d.IsInTrash(filepath.Join(home, "trash-notes")))
	assert.False(t, d.IsInTrash(filepath.Join(home, "Trash")))
	assert.False(t, d.IsInTrash(trash+"-old"))
	assert.False(t, d.IsInTrash(""))
}

func TestIsInTrash_ExtraRoots(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	d := NewDetector(WithHome(root), WithRoots(bin), WithoutVolumes())

	assert.True(t, d.IsInTrash(filepath.Join(bin, "Proj")))
	got, ok := d.RootFor(filepath.Join(bin, "Proj", "src"))
	assert.True(t, ok)
	assert.Equal(t, bin, got)
}

func TestRoots_IncludesVolumeTrashesAndCaches(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("volume trash layout differs on windows")
	}
	calls := 0
	d := NewDetector(WithHome(t.TempDir()))
	d.listMount = func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"/", "/Volumes/External", "/media/usb"}, nil
	}

	roots := d.Roots()
	assert.Equal(t, d.HomeTrash(), roots[0])
	assert.Greater(t, len(roots), 1)

	_ = d.Roots()
	assert.Equal(t, 1, calls)

	// expire the cache
	d.nowFunc = func() time.Time { return time.Now().Add(time.Hour) }
	_ = d.Roots()
	assert.Equal(t, 2, calls)
}

func TestForget_RemovesTrashInfo(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("trashinfo records are a freedesktop convention")
	}
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	d := NewDetector(WithHome(home), WithoutVolumes())

	trash := d.HomeTrash()
	item := filepath.Join(trash, "files", "Proj")
	require.NoError(t, os.MkdirAll(item, 0o755))
	info := filepath.Join(trash, "info", "Proj.trashinfo")
	require.NoError(t, os.MkdirAll(filepath.Dir(info), 0o755))
	require.NoError(t, os.WriteFile(info, []byte("[Trash Info]\nPath=/home/u/Proj\n"), 0o644))

	require.NoError(t, d.Forget(item))
	assert.NoFileExists(t, info)

	// already gone, or outside the trash
	assert.NoError(t, d.Forget(item))
	assert.NoError(t, d.Forget(filepath.Join(home, "Proj")))
}

func TestXDGDataHome(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("freedesktop only")
	}
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	d := NewDetector(WithHome(t.TempDir()), WithoutVolumes())
	assert.Equal(t, filepath.Join(data, "Trash"), d.HomeTrash())
}
