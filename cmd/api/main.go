// Package main is the entry point for the fishwatch API server.
//
// It loads configuration, wires the assessment service and its optional sinks,
// builds the HTTP server with the core chassis (middleware, routing, health
// checks), and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"fishwatch/internal/api/handlers"
	"fishwatch/internal/app"
	"fishwatch/internal/config"
	"fishwatch/internal/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel).With("service", cfg.Service)
	logger.Info("fishwatch API starting",
		"environment", cfg.Environment,
		"build", cfg.Build,
		"port", cfg.Server.Port,
	)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := app.Build(initCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building dependencies: %w", err)
	}

	srv, err := newServer(cfg, logger, deps)
	if err != nil {
		deps.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	return runHTTPServer(srv, cfg, logger)
}

// newServer mounts the handlers, probes and shutdown hooks onto the core chassis.
func newServer(cfg *config.Config, logger *slog.Logger, deps *app.Dependencies) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	if deps.Metrics != nil {
		srv.Metrics = deps.Metrics
	}

	// A nil *db.AssessmentRepository must not reach the handler as a non-nil
	// interface, or the history routes would be mounted without a store.
	var history handlers.AssessmentHistory
	if deps.History != nil {
		history = deps.History
	}

	assessmentHandler := handlers.NewAssessmentHandler(
		deps.Service,
		history,
		srv.Validator,
		logger,
		cfg.Assess.MaxBatchSize,
	)
	referenceHandler := handlers.NewReferenceHandler(deps.Regions, deps.Countries)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Route("/assessments", assessmentHandler.RegisterRoutes)
		r.Route("/reference", referenceHandler.RegisterRoutes)
	})

	srv.HealthProbes = append(srv.HealthProbes, core.NamedProbe{
		ProbeName: "oracle",
		CheckFunc: func(context.Context) error { return deps.Oracle.Healthy() },
	})
	if deps.Pool != nil {
		acquireTimeout := cfg.Database.AcquireTimeout
		srv.HealthProbes = append(srv.HealthProbes, core.NamedProbe{
			ProbeName: "database",
			CheckFunc: func(ctx context.Context) error {
				if acquireTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
					defer cancel()
				}
				return deps.Pool.Ping(ctx)
			},
		})
	}

	srv.OnShutdown = append(srv.OnShutdown, func(context.Context) error {
		deps.Close()
		return nil
	})

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
