package resolver

import (
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
)

const eventBufferSize = 32

// Event is published whenever a folder's state changes
type Event struct {
	FolderID string            `json:"id"`
	State    folder.State      `json:"state"`
	Status   folder.SyncStatus `json:"status"`
	Err      error             `json:"-"`
	Removed  bool              `json:"removed,omitempty"`
	At       time.Time         `json:"at"`
}

// Error is Err as text, for consumers that serialize events
func (e *Event) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Subscribe returns a channel receiving every event from now on.
// Slow subscribers miss events rather than block the resolver.
func (r *Resolver) Subscribe() <-chan *Event {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	ch := make(chan *Event, eventBufferSize)
	if r.closed.Load() {
		close(ch)
		return ch
	}
	r.eventSubs = append(r.eventSubs, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel
func (r *Resolver) Unsubscribe(ch <-chan *Event) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	for i, sub := range r.eventSubs {
		if sub == ch {
			close(sub)
			r.eventSubs = append(r.eventSubs[:i], r.eventSubs[i+1:]...)
			break
		}
	}
}

func (r *Resolver) publish(event *Event) {
	r.eventMu.RLock()
	defer r.eventMu.RUnlock()

	for _, sub := range r.eventSubs {
		select {
		case sub <- event:
		default:
			// full, drop rather than block
		}
	}
}

func (r *Resolver) closeSubscribers() {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	for _, sub := range r.eventSubs {
		close(sub)
	}
	r.eventSubs = nil
}
