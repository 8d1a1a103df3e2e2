package marker

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/fswalk"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// LocateByID returns the folder holding the marker for id.
// The indexed search is consulted first; its answer always wins over the scan.
func (m *Manager) LocateByID(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	start := time.Now()

	if dir, ok := m.locateIndexed(ctx, id); ok {
		slog.Debug("discovery done", "id", id, "path", dir, "phase", "index", "took", time.Since(start))
		return dir, true
	}
	if ctx.Err() != nil {
		return "", false
	}

	dir, ok := m.locateScan(ctx, id)
	slog.Debug("discovery done", "id", id, "path", dir, "found", ok, "phase", "scan", "took", time.Since(start))
	return dir, ok
}

func (m *Manager) locateIndexed(ctx context.Context, id string) (string, bool) {
	if m.index == nil {
		return "", false
	}
	hits, err := m.index.QueryByExtension(ctx, m.ext)
	if err != nil {
		if !errors.Is(err, ErrIndexUnavailable) {
			slog.Debug("indexed search", "error", err)
		}
		return "", false
	}
	for _, hit := range hits {
		if ctx.Err() != nil {
			return "", false
		}
		if !m.isMarkerName(filepath.Base(hit)) {
			continue
		}
		if m.ReadID(hit) == id {
			return filepath.Dir(hit), true
		}
	}
	return "", false
}

func (m *Manager) locateScan(ctx context.Context, id string) (string, bool) {
	var (
		found string
		done  = mapset.NewThreadUnsafeSet[string]()
	)

	for _, root := range m.roots {
		if !utils.DirExists(root) {
			continue
		}
		opts := fswalk.Options{MaxDepth: m.maxDepth, Skip: m.skip}
		stopped, err := fswalk.Walk(ctx, root, opts, func(path string, info os.FileInfo) error {
			if info.IsDir() {
				// home contains the other roots, they were already covered
				if done.Contains(utils.NormalizePath(path)) {
					return fs.SkipDir
				}
				return nil
			}
			if !m.isMarkerName(info.Name()) {
				return nil
			}
			if m.ReadID(path) == id {
				found = filepath.Dir(path)
				return fswalk.ErrStop
			}
			return nil
		})
		if stopped {
			return found, true
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			slog.Debug("discovery scan", "root", root, "error", err)
		}
		done.Add(utils.NormalizePath(root))
	}
	return "", false
}
