package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/config"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/picker"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/utils"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	var addr string
	var authToken string
	var noHTTP bool

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch every tracked folder and serve the local control plane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			slog.Info("bookmarks", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			if cmd.Flag("http-addr").Changed {
				cfg.ControlPlane.Addr = addr
			}
			if cmd.Flag("http-token").Changed {
				cfg.ControlPlane.Token = authToken
			}
			if noHTTP {
				cfg.ControlPlane.Enabled = false
			}
			slog.Info("daemon using config", "path", cfg.Path, "data", cfg.DataDir)

			defer slog.Info("Bye!")
			if err := runDaemon(cmd.Context(), cfg); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("daemon", "error", err)
				return err
			}
			return nil
		},
	}

	daemonCmd.Flags().StringVarP(&addr, "http-addr", "a", config.DefaultAddr, "Address to bind the local http server")
	daemonCmd.Flags().StringVarP(&authToken, "http-token", "t", "", "Access token for the local http server")
	daemonCmd.Flags().BoolVar(&noHTTP, "no-http", false, "Do not start the local http server")

	return daemonCmd
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	// nobody answers prompts in the background
	a, err := newApp(cfg, picker.None{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.workspace.Lock(); err != nil {
		return fmt.Errorf("%w: %s", err, a.workspace.LockPath())
	}
	defer a.workspace.Unlock()

	var cps *controlplane.Server
	if cfg.ControlPlane.Enabled {
		cps, err = controlplane.New(&controlplane.Config{
			Addr:      cfg.ControlPlane.Addr,
			AuthToken: cfg.ControlPlane.Token,
		}, a.resolver)
		if err != nil {
			return err
		}
		if cfg.ControlPlane.Token != "" {
			slog.Info("control plane auth", "token", utils.MaskSecret(cfg.ControlPlane.Token))
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := a.resolver.Start(egCtx); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}
		<-egCtx.Done()
		return nil
	})

	if cps != nil {
		eg.Go(func() error {
			if err := cps.Start(egCtx); err != nil {
				return fmt.Errorf("failed to start control plane: %w", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("stopping daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if cps != nil {
			if err := cps.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop control plane: %w", err)
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("daemon stopped")
	return nil
}
