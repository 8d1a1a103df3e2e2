package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

func setupStore(t *testing.T) *FolderStore {
	t.Helper()
	s := New(":memory:")
	require.NoError(t, s.Open())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newFolder(id, name, path string, created time.Time) *folder.TrackedFolder {
	return &folder.TrackedFolder{
		ID:            id,
		Name:          name,
		StoredPath:    path,
		IdentityToken: []byte(`{"v":1}`),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestFolderStore_NotOpen(t *testing.T) {
	s := New(":memory:")
	ctx := context.Background()

	_, err := s.QueryAll(ctx)
	assert.ErrorIs(t, err, ErrNoModelContext)
	assert.ErrorIs(t, s.Insert(ctx, newFolder("a", "A", "/a", time.Now())), ErrNoModelContext)
	assert.ErrorIs(t, s.Save(ctx, newFolder("a", "A", "/a", time.Now())), ErrNoModelContext)
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNoModelContext)
	assert.ErrorIs(t, s.Close(), ErrNoModelContext)
}

func TestFolderStore_OpenTwice(t *testing.T) {
	s := setupStore(t)
	assert.Error(t, s.Open())
}

func TestFolderStore_CRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 5, 6, 7, 123456789, time.UTC)

	f := newFolder("11111111-aaaa-bbbb-cccc-000000000001", "Proj", "/home/u/Proj", now)
	require.NoError(t, s.Insert(ctx, f))
	assert.ErrorIs(t, s.Insert(ctx, f), ErrDuplicate)

	got, err := s.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Name, got.Name)
	assert.Equal(t, f.StoredPath, got.StoredPath)
	assert.Equal(t, f.IdentityToken, got.IdentityToken)
	assert.True(t, now.Equal(got.CreatedAt))

	got.StoredPath = "/home/u/Desktop/Proj"
	got.IdentityToken = []byte(`{"v":1,"path":"/home/u/Desktop/Proj"}`)
	require.NoError(t, s.Save(ctx, got))

	again, err := s.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "/home/u/Desktop/Proj", again.StoredPath)
	assert.Equal(t, got.IdentityToken, again.IdentityToken)
	assert.True(t, now.Equal(again.CreatedAt))
	assert.False(t, again.UpdatedAt.Before(now))

	byPath, err := s.FindByPath(ctx, "/home/u/Desktop/Proj/")
	require.NoError(t, err)
	assert.Equal(t, f.ID, byPath.ID)

	require.NoError(t, s.Delete(ctx, f.ID))
	_, err = s.Get(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, f.ID), ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, f), ErrNotFound)
}

func TestFolderStore_QueryAllNewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, newFolder("b", "B", "/b", base.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, newFolder("a", "A", "/a", base)))
	// sub-second precision must still sort correctly
	require.NoError(t, s.Insert(ctx, newFolder("c", "C", "/c", base.Add(time.Hour+time.Millisecond))))

	all, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFolderStore_FindByPrefix(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Insert(ctx, newFolder("abc12345-0000", "One", "/one", now)))
	require.NoError(t, s.Insert(ctx, newFolder("abd99999-0000", "Two", "/two", now)))

	f, err := s.FindByPrefix(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "One", f.Name)

	f, err = s.FindByPrefix(ctx, "ABD9")
	require.NoError(t, err)
	assert.Equal(t, "Two", f.Name)

	_, err = s.FindByPrefix(ctx, "ab")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = s.FindByPrefix(ctx, "zz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByPrefix(ctx, "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolderStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "folders.db")
	ctx := context.Background()

	s := New(path)
	require.NoError(t, s.Open())
	require.NoError(t, s.Insert(ctx, newFolder("a", "A", "/a", time.Now())))
	require.NoError(t, s.Close())

	s = New(path)
	require.NoError(t, s.Open())
	defer s.Close()
	all, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].Name)
}
