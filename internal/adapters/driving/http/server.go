// Package http exposes the connector operations over a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/core/services"
)

// AuthURLBuilder constructs a provider's authorization redirect URL
// for a signed state token.
type AuthURLBuilder interface {
	BuildAuthURL(state string) string
}

// StateManager issues and verifies the signed OAuth state parameter.
type StateManager interface {
	Issue(userID string, provider domain.ProviderType) (string, error)
	Verify(state string) (userID string, provider domain.ProviderType, err error)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	connectors *services.Registry
	syncState  driven.SyncStateStore
	authFlows  map[domain.ProviderType]AuthURLBuilder
	states     StateManager
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. authFlows and states may be nil
// when the OAuth redirect flow is handled elsewhere.
func NewServer(cfg Config, connectors *services.Registry, syncState driven.SyncStateStore,
	authFlows map[domain.ProviderType]AuthURLBuilder, states StateManager) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		router:     http.NewServeMux(),
		version:    cfg.Version,
		logger:     cfg.Logger,
		connectors: connectors,
		syncState:  syncState,
		authFlows:  authFlows,
		states:     states,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Syncs run inline on the request
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)

	s.router.HandleFunc("GET /api/v1/connectors", s.handleListConnectors)
	s.router.HandleFunc("POST /api/v1/connectors/{name}/connect", s.handleConnect)
	s.router.HandleFunc("POST /api/v1/connectors/{name}/sync", s.handleSync)
	s.router.HandleFunc("GET /api/v1/connectors/{name}/sync-state", s.handleGetSyncState)
	s.router.HandleFunc("DELETE /api/v1/connectors/{name}", s.handleDisconnect)

	if s.states != nil {
		s.router.HandleFunc("GET /api/v1/auth/{provider}/url", s.handleAuthURL)
		s.router.HandleFunc("GET /api/v1/auth/callback", s.handleAuthCallback)
	}
}

// Handler returns the routed handler, primarily for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
