// Package workspace owns the data directory: the database, logs and the
// lock that keeps a second daemon off the same data.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

const (
	logsDir     = "logs"
	metadataDir = ".data"
	lockFile    = "bookmarks.lock"
	dbFile      = "bookmarks.db"
)

var (
	ErrWorkspaceLocked = errors.New("data directory locked by another process")
)

type Workspace struct {
	Root        string
	LogsDir     string
	MetadataDir string
	DBPath      string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:        root,
		LogsDir:     filepath.Join(root, logsDir),
		MetadataDir: filepath.Join(root, metadataDir),
		DBPath:      filepath.Join(root, dbFile),
		flock:       flock.New(filepath.Join(root, metadataDir, lockFile)),
	}, nil
}

// LockPath is where the daemon lock lives
func (w *Workspace) LockPath() string {
	return w.flock.Path()
}

func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock data directory: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// only the holder removes the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock data directory: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup creates the layout without taking the lock. CLI commands share the
// data directory with a running daemon; only the daemon locks it.
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.Root, w.LogsDir, w.MetadataDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	slog.Debug("workspace", "root", w.Root)
	return nil
}

// Locked reports whether another process holds the daemon lock
func (w *Workspace) Locked() bool {
	if w.flock.Locked() {
		return false
	}
	probe := flock.New(w.flock.Path())
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = probe.Unlock()
		return false
	}
	return true
}
