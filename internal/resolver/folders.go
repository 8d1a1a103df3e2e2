package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Add starts tracking the directory at path. An empty name uses the directory name.
// Failing to mint a token or write the marker is logged; the folder is still tracked.
func (r *Resolver) Add(ctx context.Context, path, name string) (*folder.TrackedFolder, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, folder.WrapOp("add", "", err)
	}
	if !utils.DirExists(resolved) {
		return nil, folder.WrapOp("add", "", fmt.Errorf("%w: %s", folder.ErrNotDirectory, resolved))
	}
	if r.trash.IsInTrash(resolved) {
		return nil, folder.WrapOp("add", "", fmt.Errorf("%w: %s", ErrInTrash, resolved))
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(resolved)
	}

	if existing, err := r.store.FindByPath(ctx, resolved); err == nil {
		return existing, folder.WrapOp("add", existing.ID, fmt.Errorf("%w as %q", ErrAlreadyTracked, existing.Name))
	}

	tok, err := r.codec.Encode(resolved)
	if err != nil {
		slog.Warn("identity token", "path", resolved, "error", err)
	}

	f := folder.New(name, resolved, tok)
	if err := r.markers.Create(resolved, name, f.ID); err != nil {
		slog.Warn("marker create", "id", f.ID, "path", resolved, "error", err)
	}

	if err := r.store.Insert(ctx, f); err != nil {
		// the marker would point at nothing
		_ = r.markers.Remove(resolved, name)
		return nil, folder.WrapOp("add", f.ID, err)
	}
	slog.Info("folder added", "id", f.ID, "name", name, "path", resolved)

	status, _ := r.evaluate(ctx, f)
	r.setState(f.ID, r.entryFor(f.ID), folder.StateSynced, status, nil)

	if r.monitoring() {
		r.Watch(f.ID)
	}
	return f, nil
}

// Remove stops tracking a folder. Its marker is removed first, best effort.
// A discovery still running for the folder finishes without writing anything.
func (r *Resolver) Remove(ctx context.Context, id string) error {
	f, err := r.store.Get(ctx, id)
	if err != nil {
		return folder.WrapOp("remove", id, err)
	}

	e := r.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	r.Unwatch(id)
	e.removed.Store(true)

	if f.StoredPath != "" && utils.DirExists(f.StoredPath) && !r.trash.IsInTrash(f.StoredPath) {
		if err := r.markers.Remove(f.StoredPath, f.Name); err != nil {
			slog.Warn("marker remove", "id", id, "path", f.StoredPath, "error", err)
		}
	}

	if err := r.store.Delete(ctx, id); err != nil {
		e.removed.Store(false)
		return folder.WrapOp("remove", id, err)
	}

	r.dropEntry(id)
	r.clearBackoff(id)
	r.publish(&Event{FolderID: id, State: folder.StateIdle, Removed: true, At: time.Now()})
	slog.Info("folder removed", "id", id, "name", f.Name)
	return nil
}

// Rename changes a folder's display name and renames its marker to match
func (r *Resolver) Rename(ctx context.Context, id, name string) (*folder.TrackedFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, folder.WrapOp("rename", id, folder.ErrEmptyName)
	}

	e := r.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, folder.WrapOp("rename", id, err)
	}
	if f.Name == name {
		return f, nil
	}

	if utils.DirExists(f.StoredPath) && !r.trash.IsInTrash(f.StoredPath) {
		if err := r.markers.Rename(f.StoredPath, f.Name, name, f.ID); err != nil {
			slog.Warn("marker rename", "id", id, "path", f.StoredPath, "error", err)
		}
	}

	old := f.Name
	f.Name = name
	if err := r.store.Save(ctx, f); err != nil {
		return nil, folder.WrapOp("rename", id, err)
	}
	slog.Info("folder renamed", "id", id, "from", old, "to", name)
	return f, nil
}

// List returns every tracked folder, newest first
func (r *Resolver) List(ctx context.Context) ([]*folder.TrackedFolder, error) {
	folders, err := r.store.QueryAll(ctx)
	if err != nil {
		return nil, folder.WrapOp("list", "", err)
	}
	return folders, nil
}

// Find looks a folder up by full id or unique id prefix
func (r *Resolver) Find(ctx context.Context, idOrPrefix string) (*folder.TrackedFolder, error) {
	if f, err := r.store.Get(ctx, idOrPrefix); err == nil {
		return f, nil
	}
	f, err := r.store.FindByPrefix(ctx, idOrPrefix)
	if err != nil {
		return nil, folder.WrapOp("find", idOrPrefix, err)
	}
	return f, nil
}
