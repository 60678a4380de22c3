// Package core provides the API chassis for fishwatch. It builds a chi router
// and enforces cross-cutting concerns (panic recovery, request IDs, logging,
// CORS, metrics, compression) before requests reach domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fishwatch/internal/config"
)

// MetricsCollector records API telemetry. Implementations emit
// MetricAPILatency and MetricAPIRequestCount from the types package.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a handler group under /v1.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies for the fishwatch API.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are populated by main.go so core never imports handlers.
	V1RouteRegistrars []RouteRegistrar

	// OnShutdown hooks release resources (database pool) in registration order.
	OnShutdown []func(context.Context) error

	router *chi.Mux
}

// NewServer initializes the chassis. Callers register routes and probes, then
// call MountRoutes.
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

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown runs the OnShutdown hooks and returns every failure joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	for _, hook := range s.OnShutdown {
		if err := hook(ctx); err != nil {
			s.Logger.Error("shutdown hook failed", "error", err)
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
