// Package token mints and resolves identity tokens: opaque blobs that let a
// folder be found again after it has been renamed or moved on the same volume.
//
// A token records the folder's path together with its volume and file id
// (device/inode on unix, volume serial/file index on windows) and, where the
// filesystem keeps one, its birth time. Resolving first checks the recorded
// path and then searches likely neighbourhoods for the same file id. File ids
// are recycled once a directory is deleted, so a hit whose birth time differs
// from the recorded one is not the same folder.
package token

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/denisbrodbeck/machineid"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/fswalk"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/scope"
)

const (
	formatVersion = 1

	defaultNeighbourDepth = 3
	defaultAncestorLevels = 3
	defaultRootDepth      = 5
	trashDepth            = 3
)

var (
	// ErrEncoding is returned when a token cannot be minted for a path
	ErrEncoding = errors.New("identity token encoding failed")
	// ErrInvalidToken is returned for malformed or corrupt tokens
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrUnresolvable is returned when a well-formed token no longer leads anywhere
	ErrUnresolvable = errors.New("identity token target not found")
	// ErrNoFileID is returned by platforms that cannot report a stable file id
	ErrNoFileID = errors.New("file id unavailable on this platform")
)

// fileID identifies a filesystem object for as long as it stays on its volume
type fileID struct {
	Volume uint64
	Index  uint64
}

type payload struct {
	V       int       `json:"v"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Volume  uint64    `json:"vol"`
	Index   uint64    `json:"ino"`
	Born    int64     `json:"born,omitempty"`
	Machine string    `json:"machine,omitempty"`
	Created time.Time `json:"created"`
}

func (p *payload) id() fileID {
	return fileID{Volume: p.Volume, Index: p.Index}
}

// sameBirth reports whether path can be the object the token was minted for.
// Unknown birth times on either side cannot rule it out.
func (p *payload) sameBirth(path string) bool {
	if p.Born == 0 {
		return true
	}
	born := birthTime(path)
	return born == 0 || born == p.Born
}

// verified reports whether path carries the recorded birth time
func (p *payload) verified(path string) bool {
	return p.Born != 0 && birthTime(path) == p.Born
}

// Resolution is the outcome of Decode. Access is held on Path and must be released by the caller.
//
// Verified is set when Path carries the birth time recorded in the token. A
// stale resolution that is not verified only matched on file id, which the
// filesystem may have handed to a new directory; callers should confirm it
// by other means before adopting it.
type Resolution struct {
	Path     string
	Stale    bool
	Verified bool
	Access   *scope.Guard
}

// Release gives back the access acquired while decoding
func (r *Resolution) Release() {
	if r != nil && r.Access != nil {
		r.Access.Release()
	}
}

// Codec encodes and decodes identity tokens. It holds no mutable state and is safe for concurrent use.
type Codec struct {
	machineID      string
	searchRoots    []string
	extraRoots     func() []string
	skip           []string
	rootDepth      int
	neighbourDepth int
	ancestorLevels int
	accessor       scope.Accessor
	now            func() time.Time
}

type Option func(*Codec)

// WithSearchRoots adds directories searched when a token's folder has moved
func WithSearchRoots(roots ...string) Option {
	return func(c *Codec) {
		c.searchRoots = append(c.searchRoots, roots...)
	}
}

// WithExtraRoots supplies directories computed at decode time, e.g. the trash
func WithExtraRoots(fn func() []string) Option {
	return func(c *Codec) {
		c.extraRoots = fn
	}
}

func WithSkip(patterns ...string) Option {
	return func(c *Codec) {
		c.skip = append(c.skip, patterns...)
	}
}

func WithRootDepth(depth int) Option {
	return func(c *Codec) {
		c.rootDepth = depth
	}
}

func WithAccessor(a scope.Accessor) Option {
	return func(c *Codec) {
		c.accessor = a
	}
}

// WithMachineID pins the machine binding, mostly for tests
func WithMachineID(id string) Option {
	return func(c *Codec) {
		c.machineID = id
	}
}

func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		rootDepth:      defaultRootDepth,
		neighbourDepth: defaultNeighbourDepth,
		ancestorLevels: defaultAncestorLevels,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.machineID == "" {
		if id, err := machineid.ProtectedID("bookmarks"); err == nil {
			c.machineID = id
		} else {
			slog.Debug("machine id unavailable", "error", err)
		}
	}
	return c
}

// Encode mints a token for the directory at path
func (c *Codec) Encode(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncoding, abs, folder.ErrNotDirectory)
	}

	id, err := statID(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	p := payload{
		V:       formatVersion,
		Path:    abs,
		Name:    filepath.Base(abs),
		Volume:  id.Volume,
		Index:   id.Index,
		Born:    birthTime(abs),
		Machine: c.machineID,
		Created: c.now().UTC(),
	}
	data, err := jsonMarshal(&p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return data, nil
}

func parse(token []byte) (*payload, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	var p payload
	if err := jsonUnmarshal(token, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if p.V != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidToken, p.V)
	}
	if p.Path == "" || !filepath.IsAbs(p.Path) {
		return nil, fmt.Errorf("%w: bad path %q", ErrInvalidToken, p.Path)
	}
	return &p, nil
}

// Decode resolves a token to the folder's current path. Stale is set when the
// folder no longer sits at the path it was minted for; callers must verify
// the path before relying on it.
func (c *Codec) Decode(ctx context.Context, token []byte) (*Resolution, error) {
	p, err := parse(token)
	if err != nil {
		return nil, err
	}

	path, stale, err := c.locate(ctx, p)
	if err != nil {
		return nil, err
	}

	guard := scope.New(path, c.accessor)
	guard.Acquire()
	return &Resolution{Path: path, Stale: stale, Verified: p.verified(path), Access: guard}, nil
}

// OriginalPath returns the path a token was minted for without touching the filesystem
func OriginalPath(token []byte) (string, error) {
	p, err := parse(token)
	if err != nil {
		return "", err
	}
	return p.Path, nil
}

func (c *Codec) locate(ctx context.Context, p *payload) (string, bool, error) {
	// file ids are meaningless on another machine; the recorded path is all we have
	if p.Machine != "" && c.machineID != "" && p.Machine != c.machineID {
		if isDir(p.Path) {
			return p.Path, true, nil
		}
		return "", false, fmt.Errorf("%w: minted on another machine", ErrUnresolvable)
	}

	if id, err := statID(p.Path); err == nil && id == p.id() && p.sameBirth(p.Path) {
		return p.Path, false, nil
	}

	found, err := c.search(ctx, p)
	if err != nil {
		return "", false, err
	}
	if found == "" {
		return "", false, fmt.Errorf("%w: %s", ErrUnresolvable, p.Path)
	}
	slog.Debug("identity token relocated", "from", p.Path, "to", found)
	return found, true, nil
}

type searchArea struct {
	root  string
	depth int
	opts  fswalk.Options
}

// search looks for the token's object near the original location first, then
// in the configured roots and finally in the extra roots.
func (c *Codec) search(ctx context.Context, p *payload) (string, error) {
	var areas []searchArea
	original, want := p.Path, p.id()

	dir := filepath.Dir(original)
	for level := 0; level < c.ancestorLevels && dir != filepath.Dir(dir); level++ {
		areas = append(areas, searchArea{root: dir, depth: c.neighbourDepth})
		dir = filepath.Dir(dir)
	}
	for _, root := range c.searchRoots {
		areas = append(areas, searchArea{root: root, depth: c.rootDepth})
	}
	if c.extraRoots != nil {
		for _, root := range c.extraRoots() {
			areas = append(areas, searchArea{root: root, depth: trashDepth, opts: fswalk.Options{IncludeHidden: true}})
		}
	}

	seenRoots := mapset.NewThreadUnsafeSet[string]()
	// remaining depth each directory was walked with, so overlapping areas only re-walk when they reach deeper
	visited := make(map[fileID]int)
	for _, area := range areas {
		if !isDir(area.root) || !seenRoots.Add(filepath.Clean(area.root)) {
			continue
		}
		opts := area.opts
		opts.MaxDepth = area.depth
		opts.DirsOnly = true
		opts.Skip = c.skip

		var found string
		_, err := fswalk.Walk(ctx, area.root, opts, func(path string, info os.FileInfo) error {
			id, err := statID(path)
			if err != nil {
				return nil
			}
			if id == want && p.sameBirth(path) {
				found = path
				return fswalk.ErrStop
			}
			remaining := area.depth - depthBelow(area.root, path)
			if prev, ok := visited[id]; ok && prev >= remaining {
				return fs.SkipDir
			}
			visited[id] = remaining
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		if found != "" {
			return found, nil
		}
	}
	return "", nil
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
