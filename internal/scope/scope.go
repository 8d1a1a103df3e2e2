// Package scope bounds the lifetime of filesystem access acquired for a single location.
//
// A Guard holds at most one grant at a time. Callers should prefer WithAccess, which
// releases on every exit path including panics. A runtime cleanup releases a grant that
// was never released explicitly, but that is a safety net and is logged when it fires.
package scope

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
)

// Accessor grants access to a path. The returned release func is called exactly once.
type Accessor interface {
	Grant(path string) (release func() error, err error)
}

// AccessorFunc adapts a function to Accessor
type AccessorFunc func(path string) (func() error, error)

func (f AccessorFunc) Grant(path string) (func() error, error) {
	return f(path)
}

// DirHandle keeps an open handle on the directory while access is held.
// That pins the directory inode and keeps it readable even if it is renamed meanwhile.
type DirHandle struct{}

func (DirHandle) Grant(path string) (func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f.Close, nil
}

// grant lives outside the Guard so the runtime cleanup can reach it without keeping the Guard alive
type grant struct {
	mu      sync.Mutex
	path    string
	release func() error
}

func (g *grant) take() func() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.release
	g.release = nil
	return r
}

func (g *grant) set(release func() error) {
	g.mu.Lock()
	g.release = release
	g.mu.Unlock()
}

func (g *grant) held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.release != nil
}

type Guard struct {
	path     string
	accessor Accessor
	g        *grant

	mu sync.Mutex
	// WithAccess calls currently running, and whether they opened the grant they share
	users  int
	scoped bool
}

// New wraps path. A nil accessor uses DirHandle.
func New(path string, accessor Accessor) *Guard {
	if accessor == nil {
		accessor = DirHandle{}
	}
	guard := &Guard{
		path:     path,
		accessor: accessor,
		g:        &grant{path: path},
	}
	runtime.AddCleanup(guard, func(g *grant) {
		if release := g.take(); release != nil {
			slog.Warn("scoped access released by cleanup", "path", g.path)
			_ = release()
		}
	}, guard.g)
	return guard
}

// Adopt wraps a grant that was acquired elsewhere, e.g. while decoding an identity token.
// The guard takes ownership of release.
func Adopt(path string, release func() error) *Guard {
	guard := New(path, nil)
	if release != nil {
		guard.g.set(release)
	}
	return guard
}

func (s *Guard) Path() string {
	return s.path
}

// Held reports whether a grant is currently open
func (s *Guard) Held() bool {
	return s.g.held()
}

// Acquire opens a grant. Acquiring while already held is a no-op that returns true.
func (s *Guard) Acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, _ := s.acquire()
	return ok
}

// acquire must be called with s.mu held. opened is false when the grant was already open.
func (s *Guard) acquire() (ok, opened bool) {
	if s.g.held() {
		return true, false
	}

	release, err := s.accessor.Grant(s.path)
	if err != nil {
		slog.Debug("scoped access denied", "path", s.path, "error", err)
		return false, false
	}
	if release == nil {
		release = func() error { return nil }
	}
	s.g.set(release)
	return true, true
}

// Release closes the grant if one is held. Safe to call repeatedly.
func (s *Guard) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoped = false
	s.release()
}

func (s *Guard) release() {
	release := s.g.take()
	if release == nil {
		return
	}
	if err := release(); err != nil {
		slog.Debug("scoped access release", "path", s.path, "error", err)
	}
}

// WithAccess runs fn with access held. A grant opened here is shared by
// concurrent and nested calls and released when the last of them returns;
// a grant that was already held beforehand stays held.
// fn runs even if the grant could not be opened; the platform may not require one.
func (s *Guard) WithAccess(fn func() error) error {
	s.mu.Lock()
	if _, opened := s.acquire(); opened {
		s.scoped = true
	}
	s.users++
	s.mu.Unlock()

	defer s.leave()
	return fn()
}

func (s *Guard) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users--
	if s.users == 0 && s.scoped {
		s.scoped = false
		s.release()
	}
}

// Do is WithAccess for functions returning a value
func Do[T any](s *Guard, fn func() (T, error)) (T, error) {
	var out T
	err := s.WithAccess(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
