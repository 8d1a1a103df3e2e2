// Package marker manages the small tagged file written inside every tracked
// folder. The file carries the folder's ID so that a folder can be found again
// when its identity token no longer resolves.
package marker

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

const (
	DefaultExtension = ".bookmark"
	SchemaVersion    = 1

	defaultMaxDepth = 5
	untitled        = "Untitled"
)

var (
	ErrWrite         = errors.New("marker write failed")
	ErrAlreadyExists = errors.New("conflicting marker already exists")
)

var unsafeChars = strings.NewReplacer("/", "-", ":", "-", `\`, "-")

// Record is the on-disk content of a marker file. Unknown keys are ignored on read.
type Record struct {
	ProjectName   string    `yaml:"project_name"`
	ProjectID     string    `yaml:"project_id"`
	SchemaVersion int       `yaml:"schema_version"`
	CreatedAt     time.Time `yaml:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at"`
	AppVersion    string    `yaml:"app_version,omitempty"`
}

type Manager struct {
	ext      string
	icon     string
	setIcon  func(dir, icon string) error
	index    IndexedSearch
	home     string
	roots    []string
	maxDepth int
	skip     []string
	now      func() time.Time
}

type Option func(*Manager)

// WithExtension changes the marker extension. A leading dot is added when missing.
func WithExtension(ext string) Option {
	return func(m *Manager) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.ext = ext
	}
}

// WithIcon applies the icon file at path to folders that receive a marker
func WithIcon(path string) Option {
	return func(m *Manager) {
		m.icon = path
	}
}

// WithIndex sets the indexed search used by the fast discovery phase. Nil disables it.
func WithIndex(index IndexedSearch) Option {
	return func(m *Manager) {
		m.index = index
	}
}

// WithHome overrides the home directory used for the default scan roots
func WithHome(home string) Option {
	return func(m *Manager) {
		m.home = home
	}
}

// WithRoots replaces the fallback scan roots
func WithRoots(roots ...string) Option {
	return func(m *Manager) {
		m.roots = roots
	}
}

func WithMaxDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithSkip adds doublestar patterns pruned from the fallback scan
func WithSkip(patterns ...string) Option {
	return func(m *Manager) {
		m.skip = append(m.skip, patterns...)
	}
}

func NewManager(opts ...Option) *Manager {
	home, _ := os.UserHomeDir()
	m := &Manager{
		ext:      DefaultExtension,
		setIcon:  setFolderIcon,
		home:     home,
		maxDepth: defaultMaxDepth,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.roots == nil {
		m.roots = DefaultRoots(m.home)
	}
	return m
}

// DefaultRoots are the directories scanned when the index has no answer, in order
func DefaultRoots(home string) []string {
	if home == "" {
		return nil
	}
	return []string{
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Downloads"),
		home,
	}
}

func (m *Manager) Extension() string {
	return m.ext
}

// Roots returns the fallback scan roots
func (m *Manager) Roots() []string {
	return append([]string(nil), m.roots...)
}

// Name returns the marker file name for a display name
func (m *Manager) Name(displayName string) string {
	name := strings.TrimSpace(unsafeChars.Replace(displayName))
	if name == "" {
		name = untitled
	}
	return name + m.ext
}

// Path returns the marker path inside dir
func (m *Manager) Path(dir, displayName string) string {
	return filepath.Join(dir, m.Name(displayName))
}

// Create writes a new marker into dir. A directory occupying the marker name,
// or a marker that belongs to another folder, is reported as ErrAlreadyExists.
func (m *Manager) Create(dir, displayName, id string) error {
	if !utils.DirExists(dir) {
		return fmt.Errorf("%w: folder does not exist: %s", ErrWrite, dir)
	}

	target := m.Path(dir, displayName)
	info, err := os.Lstat(target)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrAlreadyExists, target)
	case err == nil:
		if existing := m.ReadID(target); existing != "" && existing != id {
			return fmt.Errorf("%w: %s belongs to %s", ErrAlreadyExists, target, existing)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if err := m.write(target, displayName, id); err != nil {
		return err
	}
	m.applyIcon(dir)
	return nil
}

// Update rewrites the marker in dir, creating it when absent.
// The original creation time is preserved.
func (m *Manager) Update(dir, displayName, id string) error {
	target := m.Path(dir, displayName)
	if !utils.FileExists(target) {
		return m.Create(dir, displayName, id)
	}
	return m.write(target, displayName, id)
}

// Remove deletes the marker in dir. A missing marker is not an error.
func (m *Manager) Remove(dir, displayName string) error {
	err := os.Remove(m.Path(dir, displayName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Rename moves the marker for oldName to the file name of newName and
// rewrites its content. A missing marker is created.
func (m *Manager) Rename(dir, oldName, newName, id string) error {
	from := m.Path(dir, oldName)
	to := m.Path(dir, newName)
	if from == to || !utils.FileExists(from) {
		return m.Update(dir, newName, id)
	}
	if utils.PathExists(to) {
		if existing := m.ReadID(to); existing != id {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, to)
		}
		if err := os.Remove(from); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		return m.write(to, newName, id)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return m.write(to, newName, id)
}

func (m *Manager) Exists(dir, displayName string) bool {
	return utils.FileExists(m.Path(dir, displayName))
}

// FindIn returns the first file directly inside dir that carries the marker extension
func (m *Manager) FindIn(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() || !m.isMarkerName(e.Name()) {
			continue
		}
		return filepath.Join(dir, e.Name()), true
	}
	return "", false
}

// ReadID returns the project ID stored in the marker, or "" if it cannot be read
func (m *Manager) ReadID(path string) string {
	rec, err := Read(path)
	if err != nil {
		return ""
	}
	return rec.ProjectID
}

// Read parses a marker file
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse marker %s: %w", path, err)
	}
	if rec.ProjectID == "" {
		return nil, fmt.Errorf("parse marker %s: missing project_id", path)
	}
	return &rec, nil
}

func (m *Manager) isMarkerName(name string) bool {
	return len(name) > len(m.ext) && strings.EqualFold(filepath.Ext(name), m.ext)
}

func (m *Manager) write(target, displayName, id string) error {
	now := m.now()
	rec := Record{
		ProjectName:   displayName,
		ProjectID:     id,
		SchemaVersion: SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		AppVersion:    version.Version,
	}
	if prev, err := Read(target); err == nil && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	// write next to the target so the rename stays on one volume
	tmp, err := os.CreateTemp(filepath.Dir(target), ".marker-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	slog.Debug("marker written", "path", target, "id", id)
	return nil
}

func (m *Manager) applyIcon(dir string) {
	if m.icon == "" || m.setIcon == nil {
		return
	}
	if err := m.setIcon(dir, m.icon); err != nil {
		slog.Warn("marker icon", "path", dir, "error", err)
	}
}
