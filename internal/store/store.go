// Package store persists tracked folders in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/db"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    stored_path TEXT NOT NULL,
    identity_token BLOB,
    created_at TEXT NOT NULL, -- fixed width UTC so it sorts as text
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_created_at ON folders(created_at);
CREATE INDEX IF NOT EXISTS idx_folders_stored_path ON folders(stored_path);
`

const timeFormat = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrNoModelContext is returned when the store is used before Open or after Close
	ErrNoModelContext = errors.New("folder store not open")
	// ErrPersistenceUnavailable wraps failures of the underlying database
	ErrPersistenceUnavailable = errors.New("folder store unavailable")
	ErrNotFound               = errors.New("folder not found")
	ErrAmbiguous              = errors.New("folder id prefix is ambiguous")
	ErrDuplicate              = errors.New("folder already tracked")
)

// dbFolder is the row shape, times are stored as TEXT
type dbFolder struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	StoredPath    string `db:"stored_path"`
	IdentityToken []byte `db:"identity_token"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

const selectColumns = "SELECT id, name, stored_path, identity_token, created_at, updated_at FROM folders"

// FolderStore is safe for concurrent use. Writes are serialized.
type FolderStore struct {
	dbPath string
	mu     sync.RWMutex
	db     *sqlx.DB
}

// New returns a store for dbPath. ":memory:" keeps everything in memory.
func New(dbPath string) *FolderStore {
	return &FolderStore{dbPath: dbPath}
}

// Open the store and create the schema
func (s *FolderStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return fmt.Errorf("folder store already open")
	}

	if s.dbPath != ":memory:" {
		dbDir := filepath.Dir(s.dbPath)
		if err := utils.EnsureDir(dbDir); err != nil {
			return fmt.Errorf("failed to create store directory %s: %w", dbDir, err)
		}
	}

	conn, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize store schema: %w", err)
	}

	s.db = conn
	slog.Debug("folder store open", "path", s.dbPath)
	return nil
}

// Close the underlying database. Closing twice returns ErrNoModelContext.
func (s *FolderStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrNoModelContext
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		slog.Error("folder store close", "error", err)
		return err
	}
	slog.Debug("folder store closed")
	return nil
}

// Insert adds a new folder. A folder with the same id is rejected with ErrDuplicate.
func (s *FolderStore) Insert(ctx context.Context, f *folder.TrackedFolder) error {
	if f == nil {
		return fmt.Errorf("cannot insert nil folder")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNoModelContext
	}

	var exists int
	if err := s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM folders WHERE id = ?", f.ID); err != nil {
		return unavailable("insert", f.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, f.ID)
	}

	query := `INSERT INTO folders (id, name, stored_path, identity_token, created_at, updated_at)
	          VALUES (:id, :name, :stored_path, :identity_token, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, toRow(f)); err != nil {
		return unavailable("insert", f.ID, err)
	}
	slog.Debug("folder inserted", "id", f.ID, "path", f.StoredPath)
	return nil
}

// Save writes every mutable field of an existing folder. Last writer wins.
func (s *FolderStore) Save(ctx context.Context, f *folder.TrackedFolder) error {
	if f == nil {
		return fmt.Errorf("cannot save nil folder")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNoModelContext
	}

	f.UpdatedAt = time.Now().UTC()
	query := `UPDATE folders SET name = :name, stored_path = :stored_path,
	          identity_token = :identity_token, updated_at = :updated_at WHERE id = :id`
	res, err := s.db.NamedExecContext(ctx, query, toRow(f))
	if err != nil {
		return unavailable("save", f.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, f.ID)
	}
	slog.Debug("folder saved", "id", f.ID, "path", f.StoredPath)
	return nil
}

// Delete removes a folder by id. Deleting an unknown id returns ErrNotFound.
func (s *FolderStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNoModelContext
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return unavailable("delete", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	slog.Debug("folder deleted", "id", id)
	return nil
}

// Get returns the folder with id
func (s *FolderStore) Get(ctx context.Context, id string) (*folder.TrackedFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNoModelContext
	}

	var row dbFolder
	if err := s.db.GetContext(ctx, &row, selectColumns+" WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, unavailable("get", id, err)
	}
	return fromRow(row)
}

// FindByPrefix returns the single folder whose id starts with prefix
func (s *FolderStore) FindByPrefix(ctx context.Context, prefix string) (*folder.TrackedFolder, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNoModelContext
	}

	// ids are uuids, so the prefix carries no LIKE wildcards worth escaping beyond these
	pattern := strings.NewReplacer("%", "", "_", "").Replace(prefix) + "%"
	var rows []dbFolder
	if err := s.db.SelectContext(ctx, &rows, selectColumns+" WHERE id LIKE ? LIMIT 2", pattern); err != nil {
		return nil, unavailable("find", prefix, err)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return fromRow(rows[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// QueryAll returns every folder, newest first
func (s *FolderStore) QueryAll(ctx context.Context) ([]*folder.TrackedFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNoModelContext
	}

	var rows []dbFolder
	if err := s.db.SelectContext(ctx, &rows, selectColumns+" ORDER BY created_at DESC, id ASC"); err != nil {
		return nil, unavailable("query", "", err)
	}

	folders := make([]*folder.TrackedFolder, 0, len(rows))
	for _, row := range rows {
		f, err := fromRow(row)
		if err != nil {
			slog.Error("folder row", "id", row.ID, "error", err)
			continue
		}
		folders = append(folders, f)
	}
	return folders, nil
}

// FindByPath returns the folder whose stored path is path
func (s *FolderStore) FindByPath(ctx context.Context, path string) (*folder.TrackedFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNoModelContext
	}

	var row dbFolder
	if err := s.db.GetContext(ctx, &row, selectColumns+" WHERE stored_path = ? LIMIT 1", filepath.Clean(path)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, unavailable("find", path, err)
	}
	return fromRow(row)
}

// Count returns the number of tracked folders
func (s *FolderStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrNoModelContext
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM folders"); err != nil {
		return 0, unavailable("count", "", err)
	}
	return count, nil
}

func unavailable(op, id string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: %s: %w", ErrPersistenceUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrPersistenceUnavailable, op, id, err)
}

func toRow(f *folder.TrackedFolder) dbFolder {
	updated := f.UpdatedAt
	if updated.IsZero() {
		updated = f.CreatedAt
	}
	return dbFolder{
		ID:            f.ID,
		Name:          f.Name,
		StoredPath:    filepath.Clean(f.StoredPath),
		IdentityToken: f.IdentityToken,
		CreatedAt:     f.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     updated.UTC().Format(timeFormat),
	}
}

func fromRow(row dbFolder) (*folder.TrackedFolder, error) {
	created, err := time.Parse(timeFormat, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for %s: %w", row.ID, err)
	}
	updated, err := time.Parse(timeFormat, row.UpdatedAt)
	if err != nil {
		updated = created
	}
	return &folder.TrackedFolder{
		ID:            row.ID,
		Name:          row.Name,
		StoredPath:    row.StoredPath,
		IdentityToken: row.IdentityToken,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}, nil
}
