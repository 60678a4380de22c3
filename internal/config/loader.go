// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone so AssessedAt timestamps never drift.
//  2. Load a dotenv file via godotenv (DOTENV_FILE if set, else ./.env when present).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// dotenvFileVar names an explicit dotenv file. A missing explicit file is an
// error; a missing default ./.env is not.
const dotenvFileVar = "DOTENV_FILE"

// LoadConfig loads and validates the process configuration.
func LoadConfig() (*Config, error) {
	// Step 1: Enforce UTC timezone.
	time.Local = time.UTC

	// Step 2: Load dotenv. godotenv never overrides variables already set.
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	// Step 3: Process envconfig tags. The empty prefix means tag values are
	// used verbatim (e.g., envconfig:"ORACLE_URL" reads ORACLE_URL).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 4: Populate build metadata from linker-injected variables.
	cfg.Build = NewBuildInfo()

	// Step 5: Validate the populated struct.
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct validation plus the cross-field rules that tags
// cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns),
		}
	}

	return nil
}

func loadDotenv() error {
	if path, ok := os.LookupEnv(dotenvFileVar); ok && path != "" {
		if err := godotenv.Load(path); err != nil {
			return &ConfigError{
				Type:    ErrDotenv,
				Message: fmt.Sprintf("failed to load %s", path),
				Err:     err,
			}
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ConfigError{
			Type:    ErrDotenv,
			Message: "failed to load .env",
			Err:     err,
		}
	}
	return nil
}
