package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/fswalk"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
)

var (
	home, _             = os.UserHomeDir()
	DefaultConfigPath   = filepath.Join(home, ".config", "bookmarks", "config.json")
	DefaultDataDir      = filepath.Join(home, ".bookmarks")
	DefaultPollInterval = 10 * time.Second
	DefaultBackoff      = 2 * time.Minute
	DefaultMaxDepth     = 5
	DefaultExtension    = ".bookmark"
	DefaultLogLevel     = "info"
	DefaultAddr         = "127.0.0.1:7939"
)

const (
	minPollInterval = time.Second
	maxSearchDepth  = 20
)

type SearchConfig struct {
	// Roots are extra directories searched when an identity token has moved
	Roots    []string      `json:"roots,omitempty"`
	MaxDepth int           `json:"max_depth,omitempty"`
	Skip     []string      `json:"skip,omitempty"`
	Indexed  bool          `json:"indexed"`
	Backoff  time.Duration `json:"-"`
}

type MarkerConfig struct {
	Extension string `json:"extension,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

type ControlPlaneConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

type Config struct {
	DataDir      string             `json:"data_dir"`
	DBPath       string             `json:"db_path,omitempty"`
	LogPath      string             `json:"log_path,omitempty"`
	LogLevel     string             `json:"log_level,omitempty"`
	PollInterval time.Duration      `json:"-"`
	Search       SearchConfig       `json:"search"`
	Marker       MarkerConfig       `json:"marker"`
	ControlPlane ControlPlaneConfig `json:"control_plane"`
	Path         string             `json:"-"`
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{
		DataDir: DefaultDataDir,
		Path:    DefaultConfigPath,
		Search:  SearchConfig{Indexed: true},
		ControlPlane: ControlPlaneConfig{
			Enabled: true,
		},
	}
	_ = cfg.Validate()
	return cfg
}

// Validate resolves paths, fills in defaults and rejects bad values
func (c *Config) Validate() error {
	var err error

	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "bookmarks.db")
	}
	if c.DBPath, err = utils.ResolvePath(c.DBPath); err != nil {
		return fmt.Errorf("db path: %w", err)
	}

	if c.LogPath == "" {
		c.LogPath = filepath.Join(c.DataDir, "logs", "bookmarks.log")
	}
	if c.LogPath, err = utils.ResolvePath(c.LogPath); err != nil {
		return fmt.Errorf("log path: %w", err)
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll interval %s is below %s", c.PollInterval, minPollInterval)
	}

	if err := c.Search.validate(); err != nil {
		return err
	}
	if err := c.Marker.validate(); err != nil {
		return err
	}
	if err := c.ControlPlane.validate(); err != nil {
		return err
	}

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}
	return nil
}

func (s *SearchConfig) validate() error {
	if s.MaxDepth == 0 {
		s.MaxDepth = DefaultMaxDepth
	}
	if s.MaxDepth < 1 || s.MaxDepth > maxSearchDepth {
		return fmt.Errorf("search max depth must be between 1 and %d, got %d", maxSearchDepth, s.MaxDepth)
	}

	if s.Backoff == 0 {
		s.Backoff = DefaultBackoff
	}
	if s.Backoff < 0 {
		return fmt.Errorf("search backoff must not be negative")
	}

	for i, root := range s.Roots {
		resolved, err := utils.ResolvePath(root)
		if err != nil {
			return fmt.Errorf("search root %q: %w", root, err)
		}
		s.Roots[i] = resolved
	}

	if err := fswalk.ValidatePatterns(s.Skip); err != nil {
		return fmt.Errorf("search skip: %w", err)
	}
	return nil
}

func (m *MarkerConfig) validate() error {
	if m.Extension == "" {
		m.Extension = DefaultExtension
	}
	if !strings.HasPrefix(m.Extension, ".") {
		m.Extension = "." + m.Extension
	}
	if len(m.Extension) < 2 || strings.ContainsAny(m.Extension, `/\: `) || strings.Count(m.Extension, ".") > 1 {
		return fmt.Errorf("invalid marker extension %q", m.Extension)
	}

	if m.Icon != "" {
		icon, err := utils.ResolvePath(m.Icon)
		if err != nil {
			return fmt.Errorf("marker icon: %w", err)
		}
		m.Icon = icon
	}
	return nil
}

func (c *ControlPlaneConfig) validate() error {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("control plane addr %q: %w", c.Addr, err)
	}
	return nil
}

// Level returns the configured slog level
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn and error in any case
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// durations are written as strings like "10s" so the file stays hand editable
type configJSON struct {
	*configAlias
	PollInterval string     `json:"poll_interval,omitempty"`
	Search       searchJSON `json:"search"`
}

type configAlias Config

type searchJSON struct {
	*searchAlias
	Backoff string `json:"backoff,omitempty"`
}

type searchAlias SearchConfig

func (c Config) MarshalJSON() ([]byte, error) {
	out := configJSON{
		configAlias: (*configAlias)(&c),
		Search:      searchJSON{searchAlias: (*searchAlias)(&c.Search)},
	}
	if c.PollInterval != 0 {
		out.PollInterval = c.PollInterval.String()
	}
	if c.Search.Backoff != 0 {
		out.Search.Backoff = c.Search.Backoff.String()
	}
	return json.Marshal(out)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	in := configJSON{
		configAlias: (*configAlias)(c),
		Search:      searchJSON{searchAlias: (*searchAlias)(&c.Search)},
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var err error
	if in.PollInterval != "" {
		if c.PollInterval, err = time.ParseDuration(in.PollInterval); err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
	}
	if in.Search.Backoff != "" {
		if c.Search.Backoff, err = time.ParseDuration(in.Search.Backoff); err != nil {
			return fmt.Errorf("search.backoff: %w", err)
		}
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse '%s': %w", path, err)
	}
	cfg.Path = path

	return &cfg, nil
}
