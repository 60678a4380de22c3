// Package main implements the oracle-probe CLI tool for running a single
// observation through the hosted classifier and the local annotation rules.
//
// Usage:
//
//	go run ./cmd/tools/oracle-probe \
//	  --url=https://api.runpod.ai --api-key=<key> --endpoint-id=<id> \
//	  --lat=36 --lon=138 --speed=20 --proximity=1
//
// Environment variables (used as defaults when flags are not set):
//
//	ORACLE_URL          - Base URL of the inference API
//	ORACLE_API_KEY      - Bearer token for the inference API
//	ORACLE_ENDPOINT_ID  - Serverless endpoint ID
//
// The tool prints the annotated assessment as JSON. Nothing is recorded or
// published.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fishwatch/internal/assess"
	"fishwatch/internal/config"
	"fishwatch/internal/core"
	"fishwatch/internal/external"
	"fishwatch/internal/geo"
	"fishwatch/internal/types"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("oracle-probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("url", os.Getenv("ORACLE_URL"), "Inference API base URL (or ORACLE_URL env)")
	apiKey := fs.String("api-key", os.Getenv("ORACLE_API_KEY"), "Inference API key (or ORACLE_API_KEY env)")
	endpointID := fs.String("endpoint-id", os.Getenv("ORACLE_ENDPOINT_ID"), "Endpoint ID (or ORACLE_ENDPOINT_ID env)")
	timeout := fs.Duration("timeout", 30*time.Second, "Per-attempt HTTP timeout")

	var obs types.Observation
	fs.Float64Var(&obs.Latitude, "lat", 0, "Latitude in degrees")
	fs.Float64Var(&obs.Longitude, "lon", 0, "Longitude in degrees")
	fs.Float64Var(&obs.Speed, "speed", 0, "Speed in knots")
	fs.Float64Var(&obs.Proximity, "proximity", 0, "Distance to the nearest protected area")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *baseURL == "" {
		return errors.New("--url or ORACLE_URL is required")
	}
	if *endpointID == "" {
		return errors.New("--endpoint-id or ORACLE_ENDPOINT_ID is required")
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := core.NewValidator(logger).ValidateStruct(obs); err != nil {
		return err
	}

	client := external.NewInferenceClient(
		&http.Client{Timeout: *timeout},
		0,
		external.InferenceClientConfig{
			BaseURL:    *baseURL,
			APIKey:     *apiKey,
			EndpointID: *endpointID,
			UserAgent:  config.NewBuildInfo().UserAgent() + " oracle-probe",
			Logger:     logger,
		},
	)

	svc := assess.NewService(
		geo.NewRegionClassifier(geo.DefaultRegions()),
		geo.NewCountryLookup(geo.DefaultCountries()),
		client,
		logger,
	)

	assessment, err := svc.Assess(ctx, obs)
	if err != nil {
		return fmt.Errorf("assessing observation: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(assessment)
}
