package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/logging"
)

// Server wraps http.Server with the configured timeouts
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server for handler on cfg.Address()
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address(),
			Handler:           handler,
			ReadTimeout:       config.Duration(cfg.ReadTimeout),
			ReadHeaderTimeout: config.Duration(cfg.ReadTimeout),
			WriteTimeout:      config.Duration(cfg.WriteTimeout),
		},
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	logging.GetLogger().WithField("addr", s.httpServer.Addr).Info("HTTP server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	return nil
}
