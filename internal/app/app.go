// Package app assembles the runtime dependency graph shared by the API server
// and the SQS worker.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"fishwatch/internal/assess"
	"fishwatch/internal/config"
	"fishwatch/internal/db"
	"fishwatch/internal/external"
	"fishwatch/internal/geo"
	"fishwatch/internal/queue"
	"fishwatch/internal/telemetry"
)

// Dependencies holds everything a process entry point needs. Optional parts
// (History, Metrics, Alerts, Pool) are nil when not configured.
type Dependencies struct {
	Regions   *geo.RegionClassifier
	Countries *geo.CountryLookup
	Oracle    *external.InferenceClient
	Service   *assess.Service

	Pool    *pgxpool.Pool
	History *db.AssessmentRepository
	Metrics *telemetry.CloudWatchMetrics
	Alerts  *queue.AlertPublisher
}

// Build wires the reference tables, oracle client, optional sinks and the
// assessment service from cfg. The caller owns the result and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Regions:   geo.NewRegionClassifier(geo.DefaultRegions()),
		Countries: geo.NewCountryLookup(geo.DefaultCountries()),
	}

	deps.Oracle = external.NewInferenceClient(
		&http.Client{Timeout: cfg.Oracle.Timeout},
		cfg.Oracle.MaxRetries,
		external.InferenceClientConfig{
			BaseURL:    cfg.Oracle.URL,
			APIKey:     cfg.Oracle.APIKey.Unmask(),
			EndpointID: cfg.Oracle.EndpointID,
			UserAgent:  cfg.Build.UserAgent(),
			Logger:     logger,
		},
	)

	opts := []assess.Option{
		assess.WithBatchConcurrency(cfg.Assess.BatchConcurrency),
	}

	if cfg.Database.Enabled() {
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             cfg.Database.URL.Unmask(),
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		deps.Pool = pool

		if err := db.EnsureSchema(ctx, pool); err != nil {
			deps.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}

		deps.History = db.NewAssessmentRepository(pool)
		opts = append(opts, assess.WithRecorder(deps.History))
		logger.Info("assessment history enabled")
	}

	if cfg.AWS.AlertQueueURL != "" || cfg.Observability.EnableMetrics {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			deps.Close()
			return nil, err
		}

		if cfg.AWS.AlertQueueURL != "" {
			deps.Alerts = queue.NewAlertPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS.AlertQueueURL, logger)
			opts = append(opts, assess.WithAlerter(deps.Alerts))
			logger.Info("vessel alerts enabled", "queue_url", cfg.AWS.AlertQueueURL)
		}

		if cfg.Observability.EnableMetrics {
			deps.Metrics = telemetry.NewCloudWatchMetrics(
				cloudwatch.NewFromConfig(awsCfg),
				cfg.Observability.MetricNamespace,
				logger,
			)
			opts = append(opts, assess.WithMetrics(deps.Metrics))
			logger.Info("cloudwatch metrics enabled", "namespace", cfg.Observability.MetricNamespace)
		}
	}

	deps.Service = assess.NewService(deps.Regions, deps.Countries, deps.Oracle, logger, opts...)
	return deps, nil
}

// Close releases the database pool, if any.
func (d *Dependencies) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// loadAWSConfig resolves credentials from the default chain. A configured
// endpoint URL (LocalStack) overrides every service endpoint.
func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}
