// Package controlplane serves a small loopback HTTP API over the resolver.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/handlers"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/middleware"
)

// Config contains configuration for the control plane server
type Config struct {
	Addr      string // address to bind, e.g. 127.0.0.1:7939
	AuthToken string // bearer token; empty disables auth
}

type Server struct {
	config *Config
	server *http.Server
	// cancels the context of in-flight requests on Stop
	cancel context.CancelFunc
}

func New(config *Config, svc handlers.FolderService) (*Server, error) {
	if _, err := addrToURL(config.Addr); err != nil {
		return nil, err
	}

	routes := SetupRoutes(svc, &RouteConfig{
		Auth: middleware.TokenAuthConfig{
			Token: config.AuthToken,
		},
	})

	baseCtx, cancel := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              config.Addr,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		Handler:           routes,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		// no WriteTimeout, /v1/events is long lived
	}

	return &Server{
		config: config,
		server: httpServer,
		cancel: cancel,
	}, nil
}

// URL is the base address clients should use
func (s *Server) URL() string {
	url, _ := addrToURL(s.config.Addr)
	return url
}

// Start serves until Stop is called
func (s *Server) Start(ctx context.Context) error {
	slog.Info("control plane start", "addr", s.URL(), "auth", s.config.AuthToken != "")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	// event streams never go idle on their own
	s.cancel()
	return s.server.Shutdown(ctx)
}

func addrToURL(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid control plane address %q: %w", addr, err)
	}
	if port == "" {
		return "", fmt.Errorf("invalid control plane address %q: missing port", addr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
