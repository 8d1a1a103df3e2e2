package marker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, string) {
	t.Helper()
	home := t.TempDir()
	opts = append([]Option{WithHome(home)}, opts...)
	m := NewManager(opts...)
	m.setIcon = nil
	return m, home
}

func TestName_Sanitizes(t *testing.T) {
	m, _ := newTestManager(t)

	cases := map[string]string{
		"Proj":           "Proj.bookmark",
		"a/b:c\\d":       "a-b-c-d.bookmark",
		"  spaced  ":     "spaced.bookmark",
		"":               "Untitled.bookmark",
		"Client: Q3/Q4 ": "Client- Q3-Q4.bookmark",
	}
	for in, want := range cases {
		assert.Equal(t, want, m.Name(in), in)
	}
}

func TestWithExtension_AddsDot(t *testing.T) {
	m, _ := newTestManager(t, WithExtension("proj"))
	assert.Equal(t, ".proj", m.Extension())
	assert.Equal(t, "X.proj", m.Name("X"))
}

func TestCreate_WritesRecord(t *testing.T) {
	m, home := newTestManager(t)
	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.Mkdir(dir, 0o755))

	require.NoError(t, m.Create(dir, "Proj", "id-1"))
	assert.True(t, m.Exists(dir, "Proj"))

	rec, err := Read(m.Path(dir, "Proj"))
	require.NoError(t, err)
	assert.Equal(t, "Proj", rec.ProjectName)
	assert.Equal(t, "id-1", rec.ProjectID)
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestCreate_Errors(t *testing.T) {
	m, home := newTestManager(t)

	t.Run("missing folder", func(t *testing.T) {
		err := m.Create(filepath.Join(home, "missing"), "Proj", "id-1")
		assert.ErrorIs(t, err, ErrWrite)
	})

	t.Run("directory in the way", func(t *testing.T) {
		dir := filepath.Join(home, "blocked")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "Proj.bookmark"), 0o755))
		err := m.Create(dir, "Proj", "id-1")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("foreign marker", func(t *testing.T) {
		dir := filepath.Join(home, "foreign")
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, m.Create(dir, "Proj", "other"))
		err := m.Create(dir, "Proj", "id-1")
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.Equal(t, "other", m.ReadID(m.Path(dir, "Proj")))
	})

	t.Run("own marker is rewritten", func(t *testing.T) {
		dir := filepath.Join(home, "own")
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, m.Create(dir, "Proj", "id-1"))
		assert.NoError(t, m.Create(dir, "Proj", "id-1"))
	})
}

func TestCreate_IconFailureIsNotFatal(t *testing.T) {
	m, home := newTestManager(t, WithIcon("/nonexistent/icon.icns"))
	called := false
	m.setIcon = func(dir, icon string) error {
		called = true
		return errors.New("no icon for you")
	}

	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, m.Create(dir, "Proj", "id-1"))
	assert.True(t, called)
	assert.True(t, m.Exists(dir, "Proj"))
}

func TestUpdate_IdempotentAndPreservesCreatedAt(t *testing.T) {
	m, home := newTestManager(t)
	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.Mkdir(dir, 0o755))

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return first }
	require.NoError(t, m.Update(dir, "Proj", "id-1"))

	m.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, m.Update(dir, "Proj", "id-1"))
	require.NoError(t, m.Update(dir, "Proj", "id-1"))

	rec, err := Read(m.Path(dir, "Proj"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ProjectID)
	assert.Equal(t, "Proj", rec.ProjectName)
	assert.True(t, first.Equal(rec.CreatedAt))
	assert.True(t, first.Add(time.Hour).Equal(rec.UpdatedAt))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemove(t *testing.T) {
	m, home := newTestManager(t)
	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, m.Create(dir, "Proj", "id-1"))

	require.NoError(t, m.Remove(dir, "Proj"))
	assert.False(t, m.Exists(dir, "Proj"))
	assert.NoError(t, m.Remove(dir, "Proj"))
}

func TestRename(t *testing.T) {
	m, home := newTestManager(t)
	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, m.Create(dir, "Old", "id-1"))

	require.NoError(t, m.Rename(dir, "Old", "New", "id-1"))
	assert.False(t, m.Exists(dir, "Old"))
	rec, err := Read(m.Path(dir, "New"))
	require.NoError(t, err)
	assert.Equal(t, "New", rec.ProjectName)

	// a foreign marker under the new name blocks the rename
	require.NoError(t, m.Create(dir, "Taken", "other"))
	err = m.Rename(dir, "New", "Taken", "id-1")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.True(t, m.Exists(dir, "New"))
}

func TestFindInAndReadID(t *testing.T) {
	m, home := newTestManager(t)
	dir := filepath.Join(home, "Proj")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.bookmark"), 0o755))

	_, ok := m.FindIn(dir)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, m.Create(dir, "Proj", "id-1"))

	path, ok := m.FindIn(dir)
	require.True(t, ok)
	assert.Equal(t, m.Path(dir, "Proj"), path)
	assert.Equal(t, "id-1", m.ReadID(path))

	bad := filepath.Join(dir, "bad.bookmark")
	require.NoError(t, os.WriteFile(bad, []byte("{{{ not yaml"), 0o644))
	assert.Equal(t, "", m.ReadID(bad))
	assert.Equal(t, "", m.ReadID(filepath.Join(dir, "missing.bookmark")))
}

func TestRead_IgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Proj.bookmark")
	future := map[string]any{
		"project_name":   "Proj",
		"project_id":     "id-1",
		"schema_version": 7,
		"created_at":     time.Now().UTC(),
		"color":          "teal",
		"tags":           []string{"a", "b"},
	}
	data, err := yaml.Marshal(future)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ProjectID)
	assert.Equal(t, 7, rec.SchemaVersion)
}

func writeMarker(t *testing.T, m *Manager, dir, name, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, m.Create(dir, name, id))
}

func TestLocateByID_Scan(t *testing.T) {
	m, home := newTestManager(t)

	writeMarker(t, m, filepath.Join(home, "Documents", "work", "Other"), "Other", "id-2")
	want := filepath.Join(home, "Documents", "work", "Proj")
	writeMarker(t, m, want, "Proj", "id-1")

	got, ok := m.LocateByID(context.Background(), "id-1")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = m.LocateByID(context.Background(), "id-3")
	assert.False(t, ok)
	_, ok = m.LocateByID(context.Background(), "")
	assert.False(t, ok)
}

func TestLocateByID_ScanBounds(t *testing.T) {
	m, home := newTestManager(t)

	writeMarker(t, m, filepath.Join(home, ".hidden", "Proj"), "Proj", "hidden")
	writeMarker(t, m, filepath.Join(home, "Tool.app", "Proj"), "Proj", "bundled")
	writeMarker(t, m, filepath.Join(home, "a", "b", "c", "d", "e", "Proj"), "Proj", "deep")
	writeMarker(t, m, filepath.Join(home, "a", "b", "c", "Proj"), "Proj", "shallow")

	for _, id := range []string{"hidden", "bundled", "deep"} {
		_, ok := m.LocateByID(context.Background(), id)
		assert.False(t, ok, id)
	}
	got, ok := m.LocateByID(context.Background(), "shallow")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, "a", "b", "c", "Proj"), got)
}

func TestLocateByID_Skip(t *testing.T) {
	m, home := newTestManager(t, WithSkip("**/node_modules"))
	writeMarker(t, m, filepath.Join(home, "src", "node_modules", "Proj"), "Proj", "id-1")

	_, ok := m.LocateByID(context.Background(), "id-1")
	assert.False(t, ok)
}

func TestLocateByID_IndexWins(t *testing.T) {
	m, home := newTestManager(t)

	fast := filepath.Join(t.TempDir(), "Proj")
	writeMarker(t, m, fast, "Proj", "id-1")
	slow := filepath.Join(home, "Desktop", "proj")
	writeMarker(t, m, slow, "Proj", "id-1")

	m.index = IndexFunc(func(ctx context.Context, ext string) ([]string, error) {
		assert.Equal(t, ".bookmark", ext)
		return []string{
			filepath.Join(home, "unrelated.txt"),
			m.Path(fast, "Proj"),
		}, nil
	})

	got, ok := m.LocateByID(context.Background(), "id-1")
	require.True(t, ok)
	assert.Equal(t, fast, got)
}

func TestLocateByID_IndexUnavailableFallsBack(t *testing.T) {
	calls := 0
	m, home := newTestManager(t, WithIndex(IndexFunc(func(ctx context.Context, ext string) ([]string, error) {
		calls++
		return nil, ErrIndexUnavailable
	})))
	want := filepath.Join(home, "Downloads", "Proj")
	writeMarker(t, m, want, "Proj", "id-1")

	got, ok := m.LocateByID(context.Background(), "id-1")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
}

func TestLocateByID_IndexMissFallsBack(t *testing.T) {
	m, home := newTestManager(t)
	stale := filepath.Join(t.TempDir(), "Gone.bookmark")
	m.index = IndexFunc(func(ctx context.Context, ext string) ([]string, error) {
		return []string{stale}, nil
	})
	want := filepath.Join(home, "Proj")
	writeMarker(t, m, want, "Proj", "id-1")

	got, ok := m.LocateByID(context.Background(), "id-1")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLocateByID_Cancelled(t *testing.T) {
	m, home := newTestManager(t)
	writeMarker(t, m, filepath.Join(home, "Proj"), "Proj", "id-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := m.LocateByID(ctx, "id-1")
	assert.False(t, ok)
}

func TestSystemIndex_Unavailable(t *testing.T) {
	s := &systemIndex{
		home:     t.TempDir(),
		lookPath: func(string) (string, error) { return "", exec.ErrNotFound },
	}
	_, err := s.QueryByExtension(context.Background(), ".bookmark")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestSystemIndex_FilterKeepsHome(t *testing.T) {
	home := t.TempDir()
	s := &systemIndex{home: home}
	out := []byte(filepath.Join(home, "a", "P.bookmark") + "\n\n" + "/elsewhere/Q.bookmark\n")
	assert.Equal(t, []string{filepath.Join(home, "a", "P.bookmark")}, s.filter(out))
}
