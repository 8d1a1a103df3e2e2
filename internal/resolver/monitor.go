package resolver

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

// watch is the periodic check loop of one folder
type watch struct {
	cancel  context.CancelFunc
	trigger chan struct{}
}

// Start checks every tracked folder on the poll interval until ctx is done
// or the resolver is closed. Folders added later are picked up by Add.
func (r *Resolver) Start(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}

	folders, err := r.store.QueryAll(ctx)
	if err != nil {
		return folder.WrapOp("monitor", "", err)
	}

	r.watchesMu.Lock()
	if r.monitorCtx != nil && r.monitorCtx.Err() == nil {
		r.watchesMu.Unlock()
		return nil
	}
	r.monitorCtx, r.monitorCancel = context.WithCancel(ctx)
	if r.fsTriggers {
		r.parents = newParentWatcher(r.Trigger)
	}
	r.watchesMu.Unlock()

	for _, f := range folders {
		r.Watch(f.ID)
	}
	slog.Info("monitor start", "folders", len(folders), "interval", r.pollInterval)

	// stop with the caller's context as well as with Close
	go func() {
		select {
		case <-ctx.Done():
			r.stopMonitor()
		case <-r.ctx.Done():
		}
	}()
	return nil
}

func (r *Resolver) monitoring() bool {
	r.watchesMu.Lock()
	defer r.watchesMu.Unlock()
	return r.monitorCtx != nil && r.monitorCtx.Err() == nil
}

// Watch starts the periodic check of a folder. The first check runs immediately.
// Watching an already watched folder is a no-op.
func (r *Resolver) Watch(id string) {
	// load before locking so store latency never holds up the watch list
	var parent string
	if r.fsTriggers && r.monitoring() {
		if f, err := r.store.Get(r.ctx, id); err == nil {
			parent = filepath.Dir(f.StoredPath)
		}
	}

	r.watchesMu.Lock()
	defer r.watchesMu.Unlock()

	if r.monitorCtx == nil || r.monitorCtx.Err() != nil {
		return
	}
	if _, ok := r.watches[id]; ok {
		return
	}

	ctx, cancel := context.WithCancel(r.monitorCtx)
	w := &watch{
		cancel:  cancel,
		trigger: make(chan struct{}, 1),
	}
	r.watches[id] = w

	if r.parents != nil && parent != "" {
		r.parents.add(id, parent)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx, id, w)
	}()
}

// Unwatch stops the periodic check of a folder. It does not wait for a
// check that is already running.
func (r *Resolver) Unwatch(id string) {
	r.watchesMu.Lock()
	defer r.watchesMu.Unlock()

	w, ok := r.watches[id]
	if !ok {
		return
	}
	w.cancel()
	delete(r.watches, id)
	if r.parents != nil {
		r.parents.remove(id)
	}
}

// Watched reports whether id has a running check loop
func (r *Resolver) Watched(id string) bool {
	r.watchesMu.Lock()
	defer r.watchesMu.Unlock()
	_, ok := r.watches[id]
	return ok
}

// Trigger asks for an immediate check. Triggers arriving while a check is
// queued are merged.
func (r *Resolver) Trigger(id string) {
	r.watchesMu.Lock()
	w, ok := r.watches[id]
	r.watchesMu.Unlock()
	if !ok {
		return
	}
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// using a timer and not a ticker so slow checks do not queue up ticks
func (r *Resolver) loop(ctx context.Context, id string, w *watch) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-w.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if _, err := r.Check(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
				return
			}
			slog.Error("check", "id", id, "error", err)
		}
		timer.Reset(r.pollInterval)
	}
}

func (r *Resolver) stopMonitor() {
	r.watchesMu.Lock()
	if r.monitorCancel != nil {
		r.monitorCancel()
	}
	for id, w := range r.watches {
		w.cancel()
		delete(r.watches, id)
	}
	parents := r.parents
	r.parents = nil
	r.watchesMu.Unlock()

	if parents != nil {
		parents.close()
	}
}

// rewatch follows a folder to its new parent directory
func (r *Resolver) rewatch(id, oldPath, newPath string) {
	r.watchesMu.Lock()
	defer r.watchesMu.Unlock()
	if r.parents == nil || filepath.Dir(oldPath) == filepath.Dir(newPath) {
		return
	}
	if _, ok := r.watches[id]; ok {
		r.parents.add(id, filepath.Dir(newPath))
	}
}
