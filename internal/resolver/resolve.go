package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Result is the outcome of an on-demand resolution
type Result struct {
	Path     string            `json:"path"`
	Strategy string            `json:"strategy,omitempty"`
	State    folder.State      `json:"state"`
	Status   folder.SyncStatus `json:"status"`
}

// ResolveAndUpdate locates a folder right now, trying its stored path, its
// identity token, marker discovery and, when prompt is set, the picker.
// A location other than the stored one is written back unless it is in the
// trash. Discovery back-off does not apply here.
func (r *Resolver) ResolveAndUpdate(ctx context.Context, id string, prompt bool) (*Result, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	f, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, folder.WrapOp("resolve", id, err)
	}
	e := r.entryFor(id)

	path, strategy, ok := runStrategies(ctx, f, r.strategies(prompt))
	if !ok {
		status, _ := r.evaluate(ctx, f)
		state := folder.StateManualPending
		if status.IsInTrash {
			state = folder.StateInTrash
		}
		r.setState(id, e, state, status, ErrUnresolved)
		return &Result{State: state, Status: status}, folder.WrapOp("resolve", id, ErrUnresolved)
	}

	if r.trash.IsInTrash(path) {
		status, _ := r.evaluate(ctx, f)
		status.ActualPath = path
		status.IsInTrash = true
		status.IsSynced = false
		r.setState(id, e, folder.StateInTrash, status, nil)
		return &Result{Path: path, Strategy: strategy, State: folder.StateInTrash, Status: status}, nil
	}

	if !utils.SamePath(path, f.StoredPath) {
		if f, err = r.relocate(ctx, id, e, path); err != nil {
			if f == nil {
				return nil, folder.WrapOp("resolve", id, err)
			}
			slog.Warn("resolve", "id", id, "error", err)
		}
	}

	status, _ := r.evaluate(ctx, f)
	state := folder.StateSynced
	if !status.IsSynced || err != nil {
		state = folder.StateOutOfSync
	}
	r.setState(id, e, state, status, err)
	return &Result{Path: path, Strategy: strategy, State: state, Status: status}, folder.WrapOp("resolve", id, err)
}

// Locate points a folder at a location chosen by the user. An empty path asks the picker.
func (r *Resolver) Locate(ctx context.Context, id, path string) (*Result, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	f, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, folder.WrapOp("locate", id, err)
	}

	if path == "" {
		var ok bool
		if path, ok = r.fromPicker(ctx, f); !ok {
			return nil, folder.WrapOp("locate", id, fmt.Errorf("no folder chosen"))
		}
	}

	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return nil, folder.WrapOp("locate", id, err)
	}
	if !utils.DirExists(resolved) {
		return nil, folder.WrapOp("locate", id, fmt.Errorf("%w: %s", folder.ErrNotDirectory, resolved))
	}
	if r.trash.IsInTrash(resolved) {
		return nil, folder.WrapOp("locate", id, fmt.Errorf("%w: %s", ErrInTrash, resolved))
	}
	if owner := r.markers.ReadID(r.markers.Path(resolved, f.Name)); owner != "" && owner != f.ID {
		slog.Warn("locate overrides foreign marker", "id", f.ID, "owner", owner, "path", resolved)
	}

	e := r.entryFor(id)
	f, err = r.relocate(ctx, id, e, resolved)
	if f == nil {
		return nil, folder.WrapOp("locate", id, err)
	}

	status, _ := r.evaluate(ctx, f)
	state := folder.StateSynced
	if !status.IsSynced || err != nil {
		state = folder.StateOutOfSync
	}
	r.setState(id, e, state, status, err)
	return &Result{Path: resolved, Strategy: "manual", State: state, Status: status}, folder.WrapOp("locate", id, err)
}

// Status evaluates a folder without changing anything
func (r *Resolver) Status(ctx context.Context, id string) (folder.SyncStatus, bool, error) {
	f, err := r.store.Get(ctx, id)
	if err != nil {
		return folder.SyncStatus{}, false, folder.WrapOp("status", id, err)
	}
	status, needsSearch := r.evaluate(ctx, f)
	return status, needsSearch, nil
}
