// Package main implements the prune-history CLI tool for enforcing the
// assessment history retention window.
//
// Usage:
//
//	go run ./cmd/tools/prune-history --older-than=2160h
//	go run ./cmd/tools/prune-history --older-than=720h --dry-run
//	go run ./cmd/tools/prune-history --before=2026-01-01T00:00:00Z
//
// The tool reads DATABASE_URL from environment variables (or .env file via
// godotenv). In --dry-run mode it only reports how many rows would be removed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fishwatch/internal/db"
)

// defaultRetention keeps roughly one quarter of history.
const defaultRetention = 90 * 24 * time.Hour

// pruner is the slice of db.AssessmentRepository the tool needs.
type pruner interface {
	CountBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type options struct {
	cutoff time.Time
	dryRun bool
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	opts, err := parseFlags(os.Args[1:], time.Now().UTC(), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// Load .env file for local development (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded (this is fine in production)", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: databaseURL, MaxConns: 2})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	n, err := prune(ctx, db.NewAssessmentRepository(pool), opts)
	if err != nil {
		logger.Error("prune failed", "error", err)
		os.Exit(1)
	}

	logger.Info("prune complete",
		"cutoff", opts.cutoff.Format(time.RFC3339),
		"dry_run", opts.dryRun,
		"rows", n,
	)
}

// parseFlags resolves the cutoff from either --before or --older-than.
func parseFlags(args []string, now time.Time, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("prune-history", flag.ContinueOnError)
	fs.SetOutput(stderr)

	olderThan := fs.Duration("older-than", defaultRetention, "Delete assessments older than this duration")
	before := fs.String("before", "", "Delete assessments recorded before this RFC3339 time (overrides --older-than)")
	dryRun := fs.Bool("dry-run", false, "Count matching rows without deleting")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{dryRun: *dryRun}

	if *before != "" {
		t, err := time.Parse(time.RFC3339, *before)
		if err != nil {
			return options{}, fmt.Errorf("invalid --before %q: %w", *before, err)
		}
		opts.cutoff = t.UTC()
		return opts, nil
	}

	if *olderThan <= 0 {
		return options{}, errors.New("--older-than must be positive")
	}
	opts.cutoff = now.Add(-*olderThan)
	return opts, nil
}

func prune(ctx context.Context, p pruner, opts options) (int64, error) {
	if opts.dryRun {
		return p.CountBefore(ctx, opts.cutoff)
	}
	return p.DeleteBefore(ctx, opts.cutoff)
}
