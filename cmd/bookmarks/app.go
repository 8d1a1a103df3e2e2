package main

import (
	"fmt"
	"log/slog"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/config"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/marker"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/picker"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/store"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/token"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/trash"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/workspace"
)

// app wires the collaborators once per process
type app struct {
	cfg       *config.Config
	workspace *workspace.Workspace
	store     *store.FolderStore
	resolver  *resolver.Resolver
}

func newApp(cfg *config.Config, p picker.Picker) (*app, error) {
	ws, err := workspace.NewWorkspace(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := ws.Setup(); err != nil {
		return nil, err
	}

	st := store.New(cfg.DBPath)
	if err := st.Open(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	detector := trash.NewDetector()

	markerOpts := []marker.Option{
		marker.WithExtension(cfg.Marker.Extension),
		marker.WithIcon(cfg.Marker.Icon),
		marker.WithMaxDepth(cfg.Search.MaxDepth),
		marker.WithSkip(cfg.Search.Skip...),
	}
	if len(cfg.Search.Roots) > 0 {
		roots := append(append([]string{}, cfg.Search.Roots...), marker.DefaultRoots(home)...)
		markerOpts = append(markerOpts, marker.WithRoots(roots...))
	}
	if cfg.Search.Indexed {
		markerOpts = append(markerOpts, marker.WithIndex(marker.SystemIndex(home)))
	}
	markers := marker.NewManager(markerOpts...)

	codec := token.NewCodec(
		token.WithSearchRoots(cfg.Search.Roots...),
		token.WithExtraRoots(detector.Roots),
		token.WithSkip(cfg.Search.Skip...),
		token.WithRootDepth(cfg.Search.MaxDepth),
	)

	r := resolver.New(st, codec, markers, detector,
		resolver.WithPicker(p),
		resolver.WithPollInterval(cfg.PollInterval),
		resolver.WithBackoff(cfg.Search.Backoff),
		resolver.WithSearchDepth(cfg.Search.MaxDepth),
		resolver.WithSkip(cfg.Search.Skip...),
		resolver.WithFSTriggers(true),
	)

	slog.Debug("app ready", "data", cfg.DataDir, "db", cfg.DBPath, "marker", markers.Extension())
	return &app{cfg: cfg, workspace: ws, store: st, resolver: r}, nil
}

func (a *app) Close() error {
	if err := a.resolver.Close(); err != nil {
		return err
	}
	return a.store.Close()
}
