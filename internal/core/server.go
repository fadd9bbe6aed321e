// Package core provides the API chassis for the dailypost service. It creates
// a chi router that serves both standard HTTP (local and container runs) and
// AWS Lambda HTTP API events (via LambdaHandler). It applies the cross-cutting
// concerns (panic recovery, request ids, logging, CORS, metrics, compression,
// rate limiting and error formatting) before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dailypost/internal/config"
)

// Server encapsulates the dependencies of the HTTP API so tests can inject
// their own.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *Validator
	Metrics        MetricsCollector
	RateLimitStore RateLimitStore
	HealthProbes   []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. They are set by the
	// entry point so core does not import the handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes the server and its router. The caller mounts routes
// with MountRoutes after setting registrars and optional collaborators.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
// Used by http.Server (local) and LambdaHandler (Lambda).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources. Collaborators that implement
// Close() error (the metrics collector, the rate limit store) are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	for _, c := range []any{s.Metrics, s.RateLimitStore} {
		closer, ok := c.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.Logger.ErrorContext(ctx, "error closing server resource", "error", err)
			return fmt.Errorf("closing server resource: %w", err)
		}
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
