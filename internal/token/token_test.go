package token

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(opts ...Option) *Codec {
	c := NewCodec(append([]Option{WithMachineID("machine-a")}, opts...)...)
	// keep searches inside the test's temp dir
	c.ancestorLevels = 1
	return c
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(p, 0o755))
	return p
}

func TestEncode_Errors(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()

	_, err := c.Encode(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrEncoding)

	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = c.Encode(file)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestRoundTrip_Unmoved(t *testing.T) {
	c := newTestCodec()
	dir := mkdir(t, t.TempDir(), "Proj")

	tok, err := c.Encode(dir)
	require.NoError(t, err)

	res, err := c.Decode(context.Background(), tok)
	require.NoError(t, err)
	defer res.Release()

	assert.Equal(t, dir, res.Path)
	assert.False(t, res.Stale)
	require.NotNil(t, res.Access)
	assert.True(t, res.Access.Held())

	res.Release()
	assert.False(t, res.Access.Held())

	orig, err := OriginalPath(tok)
	require.NoError(t, err)
	assert.Equal(t, dir, orig)
}

func TestDecode_FollowsRenameAndMove(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")

	tok, err := c.Encode(dir)
	require.NoError(t, err)

	renamed := filepath.Join(root, "Renamed")
	require.NoError(t, os.Rename(dir, renamed))

	res, err := c.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, renamed, res.Path)
	assert.True(t, res.Stale)

	desktop := mkdir(t, root, "Desktop")
	moved := filepath.Join(desktop, "Proj")
	require.NoError(t, os.Rename(renamed, moved))

	res, err = c.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, moved, res.Path)
	assert.True(t, res.Stale)
}

func TestDecode_SearchRootsAndExtraRoots(t *testing.T) {
	base := t.TempDir()
	home := mkdir(t, base, "home")
	elsewhere := mkdir(t, base, "elsewhere", "deep")
	trash := mkdir(t, base, ".Trash")

	c := newTestCodec(
		WithSearchRoots(elsewhere),
		WithExtraRoots(func() []string { return []string{trash} }),
	)
	c.ancestorLevels = 1

	dir := mkdir(t, home, "work", "Proj")
	tok, err := c.Encode(dir)
	require.NoError(t, err)

	far := filepath.Join(elsewhere, "Proj")
	require.NoError(t, os.Rename(dir, far))
	res, err := c.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, far, res.Path)

	trashed := filepath.Join(trash, "Proj")
	require.NoError(t, os.Rename(far, trashed))
	res, err = c.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, trashed, res.Path)
	assert.True(t, res.Stale)
}

func TestDecode_Unresolvable(t *testing.T) {
	c := newTestCodec()
	dir := mkdir(t, t.TempDir(), "Gone")

	tok, err := c.Encode(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	_, err = c.Decode(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func skipWithoutBirthTime(t *testing.T, dir string) {
	t.Helper()
	if birthTime(dir) == 0 {
		t.Skip("filesystem does not record birth times")
	}
}

func TestDecode_RenamedFolderIsVerified(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")
	skipWithoutBirthTime(t, dir)

	tok, err := c.Encode(dir)
	require.NoError(t, err)

	renamed := filepath.Join(root, "Renamed")
	require.NoError(t, os.Rename(dir, renamed))

	res, err := c.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, renamed, res.Path)
	assert.True(t, res.Stale)
	assert.True(t, res.Verified)
}

func TestDecode_DeletedFolderDoesNotResolveToNewSibling(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")
	skipWithoutBirthTime(t, dir)

	tok, err := c.Encode(dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(dir))

	// the freed inode is usually handed straight to the next directory
	for i := 0; i < 5; i++ {
		mkdir(t, root, fmt.Sprintf("Unrelated%d", i))
	}

	_, err = c.Decode(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestDecode_FileIDWithDifferentBirthIsRejected(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")
	skipWithoutBirthTime(t, dir)

	tok, err := c.Encode(dir)
	require.NoError(t, err)

	// same file id, different birth: what a recycled inode looks like
	p, err := parse(tok)
	require.NoError(t, err)
	p.Born--
	forged, err := jsonMarshal(p)
	require.NoError(t, err)

	_, err = c.Decode(context.Background(), forged)
	assert.ErrorIs(t, err, ErrUnresolvable)

	require.NoError(t, os.Rename(dir, filepath.Join(root, "Moved")))
	_, err = c.Decode(context.Background(), forged)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestDecode_TokenWithoutBirthStillResolves(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")

	tok, err := c.Encode(dir)
	require.NoError(t, err)
	p, err := parse(tok)
	require.NoError(t, err)
	p.Born = 0
	legacy, err := jsonMarshal(p)
	require.NoError(t, err)

	moved := filepath.Join(root, "Moved")
	require.NoError(t, os.Rename(dir, moved))

	res, err := c.Decode(context.Background(), legacy)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, moved, res.Path)
	assert.True(t, res.Stale)
	assert.False(t, res.Verified)
}

func TestDecode_InvalidTokens(t *testing.T) {
	c := newTestCodec()
	cases := map[string][]byte{
		"empty":       nil,
		"garbage":     []byte("not json at all"),
		"bad version": []byte(`{"v":99,"path":"/x"}`),
		"no path":     []byte(`{"v":1}`),
		"relative":    []byte(`{"v":1,"path":"rel/dir"}`),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(context.Background(), tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDecode_ForeignMachine(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")

	tok, err := newTestCodec().Encode(dir)
	require.NoError(t, err)

	other := NewCodec(WithMachineID("machine-b"))
	res, err := other.Decode(context.Background(), tok)
	require.NoError(t, err)
	res.Release()
	assert.Equal(t, dir, res.Path)
	assert.True(t, res.Stale)

	require.NoError(t, os.RemoveAll(dir))
	_, err = other.Decode(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestDecode_HonoursCancellation(t *testing.T) {
	c := newTestCodec()
	root := t.TempDir()
	dir := mkdir(t, root, "Proj")
	tok, err := c.Encode(dir)
	require.NoError(t, err)
	require.NoError(t, os.Rename(dir, filepath.Join(root, "Other")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Decode(ctx, tok)
	assert.ErrorIs(t, err, context.Canceled)
}
