// Package resolver keeps tracked folders pointed at their real location.
//
// A check evaluates a folder's stored path against its identity token. Moves
// are reconciled into the store, missing folders are searched for by their
// marker file in the background, and folders sitting in the trash are left
// untouched until they are restored or removed.
package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/picker"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/syncstate"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/token"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultBackoff      = 2 * time.Minute
	defaultSearchDepth  = 5
	backoffSize         = 1024
)

var (
	ErrDestinationExists = errors.New("restore destination already exists")
	ErrNotInTrash        = errors.New("folder is not in the trash")
	ErrInTrash           = errors.New("location is inside the trash")
	ErrUnresolved        = errors.New("folder could not be located")
	ErrClosed            = errors.New("resolver closed")
	ErrAlreadyTracked    = errors.New("folder already tracked")

	errReconcileBusy = errors.New("reconcile already in progress")
)

// Store is the persistence contract. Save is atomic per folder.
type Store interface {
	Insert(ctx context.Context, f *folder.TrackedFolder) error
	Save(ctx context.Context, f *folder.TrackedFolder) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*folder.TrackedFolder, error)
	FindByPrefix(ctx context.Context, prefix string) (*folder.TrackedFolder, error)
	FindByPath(ctx context.Context, path string) (*folder.TrackedFolder, error)
	QueryAll(ctx context.Context) ([]*folder.TrackedFolder, error)
}

type Codec interface {
	Encode(path string) ([]byte, error)
	Decode(ctx context.Context, token []byte) (*token.Resolution, error)
}

type Markers interface {
	Create(dir, displayName, id string) error
	Update(dir, displayName, id string) error
	Remove(dir, displayName string) error
	Rename(dir, oldName, newName, id string) error
	Path(dir, displayName string) string
	ReadID(path string) string
	FindIn(dir string) (string, bool)
	LocateByID(ctx context.Context, id string) (string, bool)
	Roots() []string
}

type Trash interface {
	IsInTrash(path string) bool
	Forget(path string) error
}

// entry is the in-memory state kept per tracked folder
type entry struct {
	// serializes writes to the folder's stored fields
	mu          sync.Mutex
	searching   atomic.Bool
	reconciling atomic.Bool
	removed     atomic.Bool

	stateMu   sync.RWMutex
	state     folder.State
	status    folder.SyncStatus
	err       error
	checkedAt time.Time
}

type Resolver struct {
	store   Store
	codec   Codec
	markers Markers
	trash   Trash
	picker  picker.Picker
	eval    *syncstate.Evaluator

	pollInterval time.Duration
	backoffTTL   time.Duration
	backoff      *expirable.LRU[string, time.Time]
	searchDepth  int
	skip         []string
	fsTriggers   bool

	entries   map[string]*entry
	entriesMu sync.Mutex

	watches       map[string]*watch
	watchesMu     sync.Mutex
	parents       *parentWatcher
	monitorCtx    context.Context
	monitorCancel context.CancelFunc

	eventSubs []chan *Event
	eventMu   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

type Option func(*Resolver)

// WithPicker sets the collaborator asked when every other strategy fails
func WithPicker(p picker.Picker) Option {
	return func(r *Resolver) {
		if p != nil {
			r.picker = p
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithBackoff suppresses automatic discovery for a folder for d after a
// search came back empty. Zero disables the back-off.
func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) {
		r.backoffTTL = d
	}
}

// WithSearchDepth bounds the restore heuristic scan
func WithSearchDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.searchDepth = depth
		}
	}
}

func WithSkip(patterns ...string) Option {
	return func(r *Resolver) {
		r.skip = append(r.skip, patterns...)
	}
}

// WithFSTriggers watches the parent directory of every monitored folder and
// checks it as soon as something there changes
func WithFSTriggers(enabled bool) Option {
	return func(r *Resolver) {
		r.fsTriggers = enabled
	}
}

func New(store Store, codec Codec, markers Markers, trash Trash, opts ...Option) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Resolver{
		store:        store,
		codec:        codec,
		markers:      markers,
		trash:        trash,
		picker:       picker.None{},
		pollInterval: DefaultPollInterval,
		backoffTTL:   DefaultBackoff,
		searchDepth:  defaultSearchDepth,
		entries:      make(map[string]*entry),
		watches:      make(map[string]*watch),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.backoffTTL > 0 {
		r.backoff = expirable.NewLRU[string, time.Time](backoffSize, nil, r.backoffTTL)
	}
	r.eval = syncstate.New(codec, trash)
	return r
}

// Close stops monitoring, waits for in-flight discoveries and closes all subscriptions
func (r *Resolver) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.stopMonitor()
	r.cancel()
	r.wg.Wait()
	r.closeSubscribers()
	return nil
}

func (r *Resolver) entryFor(id string) *entry {
	r.entriesMu.Lock()
	defer r.entriesMu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		e = &entry{state: folder.StateIdle}
		r.entries[id] = e
	}
	return e
}

func (r *Resolver) dropEntry(id string) {
	r.entriesMu.Lock()
	defer r.entriesMu.Unlock()
	delete(r.entries, id)
}

// State returns the last published state of a folder
func (r *Resolver) State(id string) (folder.State, folder.SyncStatus, error) {
	e := r.entryFor(id)
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state, e.status, e.err
}

// Searching reports whether a discovery is in flight for id
func (r *Resolver) Searching(id string) bool {
	return r.entryFor(id).searching.Load()
}

func (r *Resolver) setState(id string, e *entry, state folder.State, status folder.SyncStatus, err error) {
	e.stateMu.Lock()
	e.state = state
	e.status = status
	e.err = err
	e.checkedAt = time.Now()
	e.stateMu.Unlock()

	r.publish(&Event{FolderID: id, State: state, Status: status, Err: err, At: time.Now()})
}

func (r *Resolver) inBackoff(id string) bool {
	if r.backoff == nil {
		return false
	}
	return r.backoff.Contains(id)
}

func (r *Resolver) clearBackoff(id string) {
	if r.backoff != nil {
		r.backoff.Remove(id)
	}
}

func (r *Resolver) markBackoff(id string) {
	if r.backoff != nil {
		r.backoff.Add(id, time.Now())
	}
}
