package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

// Check runs one cycle for a folder and returns the state it ended in.
// Filesystem trouble never fails a check; only the store can.
// A folder that needs a search ends in StateSearching while discovery runs
// in the background; its outcome is published as an event.
func (r *Resolver) Check(ctx context.Context, id string) (folder.State, error) {
	if r.closed.Load() {
		return folder.StateIdle, ErrClosed
	}

	f, err := r.store.Get(ctx, id)
	if err != nil {
		return folder.StateIdle, folder.WrapOp("check", id, err)
	}

	e := r.entryFor(id)
	if e.removed.Load() {
		return folder.StateIdle, nil
	}

	status, needsSearch := r.evaluate(ctx, f)
	r.setState(id, e, folder.StateChecking, status, nil)

	switch {
	case status.IsInTrash:
		// never reconcile out of the trash, the stored path is the way back
		r.setState(id, e, folder.StateInTrash, status, nil)
		return folder.StateInTrash, nil

	case needsSearch:
		if e.searching.Load() {
			return folder.StateSearching, nil
		}
		if r.inBackoff(id) {
			r.setState(id, e, folder.StateManualPending, status, ErrUnresolved)
			return folder.StateManualPending, nil
		}
		r.startDiscovery(f, e, status)
		return folder.StateSearching, nil

	case status.HasActual() && !utils.SamePath(status.ActualPath, f.StoredPath):
		return r.reconcileAndPublish(ctx, id, e, status.ActualPath, status)

	case status.IsSynced:
		r.setState(id, e, folder.StateSynced, status, nil)
		return folder.StateSynced, nil
	}

	r.setState(id, e, folder.StateOutOfSync, status, nil)
	return folder.StateOutOfSync, nil
}

// startDiscovery searches for the folder's marker off the calling goroutine.
// It returns false if a discovery for the folder is already running.
func (r *Resolver) startDiscovery(f *folder.TrackedFolder, e *entry, status folder.SyncStatus) bool {
	if !e.searching.CompareAndSwap(false, true) {
		return false
	}
	r.setState(f.ID, e, folder.StateSearching, status, nil)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		start := time.Now()
		dir, found := r.markers.LocateByID(r.ctx, f.ID)
		if !found && !e.removed.Load() {
			r.markBackoff(f.ID)
		}
		// cleared before publishing so a check reacting to the event sees it
		e.searching.Store(false)

		if e.removed.Load() || r.ctx.Err() != nil {
			slog.Debug("discovery result dropped", "id", f.ID)
			return
		}
		if !found {
			slog.Info("discovery exhausted", "id", f.ID, "took", time.Since(start))
			r.setState(f.ID, e, folder.StateManualPending, status, ErrUnresolved)
			return
		}
		if r.trash.IsInTrash(dir) {
			trashed := status
			trashed.ActualPath = dir
			trashed.IsInTrash = true
			r.setState(f.ID, e, folder.StateInTrash, trashed, nil)
			return
		}

		slog.Info("discovery found", "id", f.ID, "path", dir, "took", time.Since(start))
		located := status
		located.ActualPath = dir
		_, _ = r.reconcileAndPublish(r.ctx, f.ID, e, dir, located)
	}()
	return true
}

// reconcileAndPublish moves the folder's stored location to actual and
// publishes the status recomputed against the path that was written.
func (r *Resolver) reconcileAndPublish(ctx context.Context, id string, e *entry, actual string, before folder.SyncStatus) (folder.State, error) {
	if !e.reconciling.CompareAndSwap(false, true) {
		slog.Debug("reconcile skipped", "id", id, "reason", errReconcileBusy)
		return folder.StateChecking, nil
	}
	defer e.reconciling.Store(false)

	f, err := r.relocate(ctx, id, e, actual)
	if err != nil {
		slog.Warn("reconcile", "id", id, "path", actual, "error", err)
		if f == nil {
			r.setState(id, e, folder.StateOutOfSync, before, err)
			return folder.StateOutOfSync, nil
		}
	}

	after, _ := r.evaluate(ctx, f)
	state := folder.StateSynced
	if !after.IsSynced || err != nil {
		state = folder.StateOutOfSync
	}
	r.setState(id, e, state, after, err)
	// only a failed save gets here with err set
	return state, folder.WrapOp("reconcile", id, err)
}

// relocate points the folder at path: stored path, identity token, marker,
// then the store. Token and marker failures are logged and do not stop the
// path update. The returned folder reflects what was attempted even when
// the final save fails.
func (r *Resolver) relocate(ctx context.Context, id string, e *entry, path string) (*folder.TrackedFolder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed.Load() {
		return nil, fmt.Errorf("folder %s was removed", id)
	}
	if r.trash.IsInTrash(path) {
		return nil, fmt.Errorf("%w: %s", ErrInTrash, path)
	}
	if !utils.DirExists(path) {
		return nil, fmt.Errorf("%w: %s", folder.ErrNotDirectory, path)
	}

	// reload so concurrent edits such as a rename are not overwritten
	f, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := f.StoredPath
	f.StoredPath = path

	if tok, err := r.codec.Encode(path); err != nil {
		slog.Warn("identity token", "id", id, "path", path, "error", err)
	} else {
		f.IdentityToken = tok
	}

	if err := r.markers.Update(path, f.Name, f.ID); err != nil {
		slog.Warn("marker update", "id", id, "path", path, "error", err)
	}

	if err := r.store.Save(ctx, f); err != nil {
		return f, err
	}

	r.clearBackoff(id)
	r.rewatch(id, prev, path)
	slog.Info("folder relocated", "id", id, "from", prev, "to", path)
	return f, nil
}
