// Package config defines the process configuration for the fishwatch API and
// worker. Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved in priority order:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"fishwatch/internal/types"
)

// SecretString is an alias for types.SecretString so callers can Unmask
// credentials without importing types.
type SecretString = types.SecretString

// Config is the top-level configuration. Sub-components receive only the
// section they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"fishwatch-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Oracle        OracleConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Assess        AssessConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
}

// OracleConfig points at the hosted classifier endpoint.
type OracleConfig struct {
	URL        string        `envconfig:"ORACLE_URL" validate:"required,url"` // e.g., https://api.runpod.ai
	APIKey     SecretString  `envconfig:"ORACLE_API_KEY"`
	EndpointID string        `envconfig:"ORACLE_ENDPOINT_ID" validate:"required"`
	Timeout    time.Duration `envconfig:"ORACLE_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxRetries int           `envconfig:"ORACLE_MAX_RETRIES" default:"1" validate:"min=0,max=5"`
}

// DatabaseConfig holds the optional history store connection. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	// Tuning Parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"` // Fail fast when pool exhausted
}

// Enabled reports whether a database URL was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL.Unmask() != ""
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Alerts for positive verdicts are skipped when unset.
	AlertQueueURL string `envconfig:"SQS_ALERT_QUEUE" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// AssessConfig bounds batch assessment work.
type AssessConfig struct {
	BatchConcurrency int `envconfig:"ASSESS_BATCH_CONCURRENCY" default:"8" validate:"min=1,max=64"`
	MaxBatchSize     int `envconfig:"ASSESS_MAX_BATCH_SIZE" default:"100" validate:"min=1,max=1000"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"FishWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrDotenv indicates an explicitly requested dotenv file could not be read.
	ErrDotenv ConfigErrorType = "DOTENV_FAILED"
)
