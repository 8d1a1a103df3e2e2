// Package trash decides whether a path lies inside the platform's trash.
package trash

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

const mountCacheTTL = 30 * time.Second

type Detector struct {
	home      string
	extra     []string
	volumes   bool
	listMount func(ctx context.Context) ([]string, error)

	mu       sync.Mutex
	cached   []string
	cachedAt time.Time
	cacheTTL time.Duration
	nowFunc  func() time.Time
}

type Option func(*Detector)

// WithHome overrides the user's home directory
func WithHome(home string) Option {
	return func(d *Detector) {
		d.home = home
	}
}

// WithRoots adds directories that count as trash in addition to the platform ones
func WithRoots(roots ...string) Option {
	return func(d *Detector) {
		d.extra = append(d.extra, roots...)
	}
}

// WithoutVolumes ignores per-volume trash directories
func WithoutVolumes() Option {
	return func(d *Detector) {
		d.volumes = false
	}
}

func NewDetector(opts ...Option) *Detector {
	home, _ := os.UserHomeDir()
	d := &Detector{
		home:      home,
		volumes:   true,
		listMount: mountPoints,
		cacheTTL:  mountCacheTTL,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HomeTrash is the current user's trash directory
func (d *Detector) HomeTrash() string {
	return homeTrash(d.home)
}

// Roots lists every directory considered trash, home trash first
func (d *Detector) Roots() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && d.nowFunc().Sub(d.cachedAt) < d.cacheTTL {
		return append([]string(nil), d.cached...)
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var roots []string
	add := func(p string) {
		if p == "" {
			return
		}
		p = filepath.Clean(p)
		if seen.Add(utils.NormalizePath(p)) {
			roots = append(roots, p)
		}
	}

	add(d.HomeTrash())
	for _, r := range d.extra {
		add(r)
	}

	if d.volumes {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		mounts, err := d.listMount(ctx)
		cancel()
		if err != nil {
			slog.Debug("trash: list mounts", "error", err)
		}
		for _, m := range mounts {
			for _, r := range volumeTrashes(m) {
				add(r)
			}
		}
	}

	d.cached = roots
	d.cachedAt = d.nowFunc()
	return append([]string(nil), roots...)
}

// IsInTrash reports whether path is a trash directory or lies below one.
// Matching is done on path boundaries, never on the word "trash" in a name.
func (d *Detector) IsInTrash(path string) bool {
	_, ok := d.RootFor(path)
	return ok
}

// RootFor returns the trash directory containing path
func (d *Detector) RootFor(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	candidates := []string{path}
	if resolved, err := filepath.EvalSymlinks(path); err == nil && resolved != path {
		candidates = append(candidates, resolved)
	}

	for _, root := range d.Roots() {
		roots := []string{root}
		if resolved, err := filepath.EvalSymlinks(root); err == nil && resolved != root {
			roots = append(roots, resolved)
		}
		for _, r := range roots {
			for _, c := range candidates {
				if utils.IsSubPath(r, c) {
					return root, true
				}
			}
		}
	}
	return "", false
}

// Forget drops platform bookkeeping for an item that is about to leave the trash.
// Missing bookkeeping is not an error.
func (d *Detector) Forget(path string) error {
	root, ok := d.RootFor(path)
	if !ok {
		return nil
	}
	return forget(root, path)
}

func mountPoints(ctx context.Context) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Mountpoint)
	}
	return out, nil
}
