package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Server is the HTTP surface of the report layer. It only reads persisted
// scan output; all policy (coverage gates, publishing) stays in consumers.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// New creates the API server.
func New(cfg *config.Store, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.String("API_PORT", "8080"),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: log.WithField("module", "api"),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
