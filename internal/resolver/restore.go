package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/fswalk"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// RestoreFromTrash moves a trashed folder back out of the trash and points
// the folder at its restored location. The destination directory is, in
// order: the parent of the stored path, the parent of a folder found by
// marker discovery, a directory under the scan roots named like the old
// parent, and finally the first scan root. An occupied destination is never
// overwritten.
func (r *Resolver) RestoreFromTrash(ctx context.Context, id string) (*Result, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	f, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, folder.WrapOp("restore", id, err)
	}

	src, ok := r.trashedLocation(ctx, f)
	if !ok {
		return nil, folder.WrapOp("restore", id, ErrNotInTrash)
	}

	leaf := filepath.Base(f.StoredPath)
	if f.StoredPath == "" || leaf == "." || leaf == string(filepath.Separator) {
		leaf = filepath.Base(src)
	}

	parent, how := r.restoreParent(ctx, f)
	if parent == "" {
		return nil, folder.WrapOp("restore", id, errors.New("no restore destination available"))
	}
	dest := filepath.Join(parent, leaf)
	if utils.PathExists(dest) {
		return nil, folder.WrapOp("restore", id, fmt.Errorf("%w: %s", ErrDestinationExists, dest))
	}

	e := r.entryFor(id)
	e.mu.Lock()
	err = utils.MoveDir(src, dest)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, folder.WrapOp("restore", id, fmt.Errorf("%w: %s", ErrDestinationExists, dest))
		}
		return nil, folder.WrapOp("restore", id, err)
	}
	slog.Info("folder restored", "id", id, "from", src, "to", dest, "via", how)

	if err := r.trash.Forget(src); err != nil {
		slog.Warn("trash bookkeeping", "path", src, "error", err)
	}

	f, err = r.relocate(ctx, id, e, dest)
	if f == nil {
		return nil, folder.WrapOp("restore", id, err)
	}

	status, _ := r.evaluate(ctx, f)
	state := folder.StateSynced
	if !status.IsSynced || err != nil {
		state = folder.StateOutOfSync
	}
	r.setState(id, e, state, status, err)
	return &Result{Path: dest, Strategy: how, State: state, Status: status}, folder.WrapOp("restore", id, err)
}

// trashedLocation returns where the folder currently sits inside the trash
func (r *Resolver) trashedLocation(ctx context.Context, f *folder.TrackedFolder) (string, bool) {
	status, _ := r.evaluate(ctx, f)
	if !status.IsInTrash {
		return "", false
	}
	if status.ActualPath != "" && r.trash.IsInTrash(status.ActualPath) && utils.DirExists(status.ActualPath) {
		return status.ActualPath, true
	}
	if r.trash.IsInTrash(f.StoredPath) && utils.DirExists(f.StoredPath) {
		return f.StoredPath, true
	}
	return "", false
}

func (r *Resolver) restoreParent(ctx context.Context, f *folder.TrackedFolder) (string, string) {
	if parent := filepath.Dir(f.StoredPath); f.StoredPath != "" && utils.DirExists(parent) && !r.trash.IsInTrash(parent) {
		return parent, "stored parent"
	}

	if dir, ok := r.markers.LocateByID(ctx, f.ID); ok && !r.trash.IsInTrash(dir) {
		if parent := filepath.Dir(dir); utils.DirExists(parent) {
			return parent, "marker discovery"
		}
	}

	// the old parent may itself have moved; look for it by name
	if f.StoredPath != "" {
		if parent, ok := r.findDirNamed(ctx, filepath.Base(filepath.Dir(f.StoredPath))); ok {
			return parent, "same name"
		}
	}

	for _, root := range r.markers.Roots() {
		if utils.DirExists(root) && !r.trash.IsInTrash(root) {
			return root, "default root"
		}
	}
	return "", ""
}

// findDirNamed scans the roots for a directory called name
func (r *Resolver) findDirNamed(ctx context.Context, name string) (string, bool) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", false
	}
	var found string
	for _, root := range r.markers.Roots() {
		if !utils.DirExists(root) {
			continue
		}
		opts := fswalk.Options{MaxDepth: r.searchDepth, Skip: r.skip, DirsOnly: true}
		stopped, _ := fswalk.Walk(ctx, root, opts, func(path string, info os.FileInfo) error {
			if r.trash.IsInTrash(path) {
				return fs.SkipDir
			}
			if strings.EqualFold(info.Name(), name) {
				found = path
				return fswalk.ErrStop
			}
			return nil
		})
		if stopped {
			return found, true
		}
	}
	return "", false
}
