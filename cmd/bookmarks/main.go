package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/config"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
	envPrefix      = "BOOKMARKS"
	envConfigPath  = "BOOKMARKS_CONFIG_PATH"
)

const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
	logTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

// closed after the command finishes
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:     "bookmarks",
	Short:   "Keep track of project folders wherever they move",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		return setupLogging(cmd, cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
			logCloser = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Bookmarks config file")
	rootCmd.PersistentFlags().StringP("datadir", "d", config.DefaultDataDir, "Bookmarks data directory")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
}

func main() {
	// console only until the config says where the log file goes
	slog.SetDefault(slog.New(consoleHandler(slog.LevelInfo)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func consoleHandler(level slog.Level) slog.Handler {
	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: logTimeFormat,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
}

// setupLogging logs to stderr and to a rotated file under the data directory.
// Only the daemon is chatty on the console unless a level was asked for.
func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	consoleLevel := slog.LevelWarn
	if cmd.Name() == "daemon" || cmd.Flag("log-level").Changed {
		consoleLevel = cfg.Level()
	}

	if err := utils.EnsureParent(cfg.LogPath); err != nil {
		slog.SetDefault(slog.New(consoleHandler(consoleLevel)))
		slog.Warn("log file unavailable", "path", cfg.LogPath, "error", err)
		return nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	logInterceptor := utils.NewLogInterceptor(rotator)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: cfg.Level(),
		// time is added by the log interceptor
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logger := slog.New(utils.NewMultiLogHandler(consoleHandler(consoleLevel), fileHandler))
	slog.SetDefault(logger)
	logCloser = logInterceptor
	return nil
}

func loadConfig(cmd *cobra.Command) error {
	viper.SetConfigFile(resolveConfigPath(cmd))
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetDefault("data_dir", config.DefaultDataDir)
	viper.SetDefault("log_level", config.DefaultLogLevel)
	viper.SetDefault("search.indexed", true)
	viper.SetDefault("control_plane.enabled", true)
	viper.SetDefault("control_plane.addr", config.DefaultAddr)

	// flags win over the file only when given
	if f := cmd.Flag("datadir"); f != nil && f.Changed {
		_ = viper.BindPFlag("data_dir", f)
	}
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		_ = viper.BindPFlag("log_level", f)
	}

	// BOOKMARKS_DATA_DIR, BOOKMARKS_SEARCH_INDEXED, ...
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Path:         viper.ConfigFileUsed(),
		DataDir:      viper.GetString("data_dir"),
		DBPath:       viper.GetString("db_path"),
		LogPath:      viper.GetString("log_path"),
		LogLevel:     viper.GetString("log_level"),
		PollInterval: viper.GetDuration("poll_interval"),
		Search: config.SearchConfig{
			Roots:    viper.GetStringSlice("search.roots"),
			MaxDepth: viper.GetInt("search.max_depth"),
			Skip:     viper.GetStringSlice("search.skip"),
			Indexed:  viper.GetBool("search.indexed"),
			Backoff:  viper.GetDuration("search.backoff"),
		},
		Marker: config.MarkerConfig{
			Extension: viper.GetString("marker.extension"),
			Icon:      viper.GetString("marker.icon"),
		},
		ControlPlane: config.ControlPlaneConfig{
			Enabled: viper.GetBool("control_plane.enabled"),
			Addr:    viper.GetString("control_plane.addr"),
			Token:   viper.GetString("control_plane.token"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
