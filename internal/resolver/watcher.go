package resolver

import (
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rjeczalik/notify"
)

const (
	watchEventBuffer = 64
	watchDebounce    = 500 * time.Millisecond
)

// parentWatcher watches the parent directory of each monitored folder and
// triggers a check of the folders living there when entries are created,
// removed or renamed. Bursts are debounced per directory.
type parentWatcher struct {
	mu       sync.Mutex
	dirs     map[string]*dirWatch
	byID     map[string]string
	trigger  func(id string)
	debounce time.Duration
	closed   bool
}

type dirWatch struct {
	events chan notify.EventInfo
	done   chan struct{}
	ids    mapset.Set[string]
	timer  *time.Timer
}

func newParentWatcher(trigger func(id string)) *parentWatcher {
	return &parentWatcher{
		dirs:     make(map[string]*dirWatch),
		byID:     make(map[string]string),
		trigger:  trigger,
		debounce: watchDebounce,
	}
}

// add moves id to dir, dropping its previous directory
func (pw *parentWatcher) add(id, dir string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return
	}
	if prev, ok := pw.byID[id]; ok {
		if prev == dir {
			return
		}
		pw.detach(id, prev)
	}

	dw, ok := pw.dirs[dir]
	if !ok {
		dw = &dirWatch{
			events: make(chan notify.EventInfo, watchEventBuffer),
			done:   make(chan struct{}),
			ids:    mapset.NewSet[string](),
		}
		if err := notify.Watch(dir, dw.events, notify.Create, notify.Remove, notify.Rename); err != nil {
			slog.Warn("watch parent", "dir", dir, "error", err)
			return
		}
		pw.dirs[dir] = dw
		go pw.drain(dir, dw)
		slog.Debug("watch parent", "dir", dir)
	}
	dw.ids.Add(id)
	pw.byID[id] = dir
}

func (pw *parentWatcher) remove(id string) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if dir, ok := pw.byID[id]; ok {
		pw.detach(id, dir)
	}
}

// detach expects pw.mu held
func (pw *parentWatcher) detach(id, dir string) {
	delete(pw.byID, id)
	dw, ok := pw.dirs[dir]
	if !ok {
		return
	}
	dw.ids.Remove(id)
	if dw.ids.Cardinality() == 0 {
		pw.stopDir(dir, dw)
	}
}

// stopDir expects pw.mu held
func (pw *parentWatcher) stopDir(dir string, dw *dirWatch) {
	notify.Stop(dw.events)
	close(dw.done)
	if dw.timer != nil {
		dw.timer.Stop()
	}
	delete(pw.dirs, dir)
}

func (pw *parentWatcher) close() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.closed = true
	for dir, dw := range pw.dirs {
		pw.stopDir(dir, dw)
	}
	clear(pw.byID)
}

func (pw *parentWatcher) drain(dir string, dw *dirWatch) {
	for {
		select {
		case <-dw.done:
			return
		case ev := <-dw.events:
			slog.Debug("parent changed", "dir", dir, "event", ev.Event(), "path", ev.Path())
			pw.schedule(dir, dw)
		}
	}
}

func (pw *parentWatcher) schedule(dir string, dw *dirWatch) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.dirs[dir] != dw {
		return
	}
	if dw.timer != nil {
		dw.timer.Stop()
	}
	dw.timer = time.AfterFunc(pw.debounce, func() {
		pw.fire(dir, dw)
	})
}

// fire calls trigger without holding pw.mu; trigger may take the resolver's locks
func (pw *parentWatcher) fire(dir string, dw *dirWatch) {
	pw.mu.Lock()
	if pw.dirs[dir] != dw {
		pw.mu.Unlock()
		return
	}
	ids := dw.ids.ToSlice()
	pw.mu.Unlock()

	for _, id := range ids {
		pw.trigger(id)
	}
}

// watching reports the directories currently watched
func (pw *parentWatcher) watching() []string {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	dirs := make([]string, 0, len(pw.dirs))
	for dir := range pw.dirs {
		dirs = append(dirs, dir)
	}
	return dirs
}
