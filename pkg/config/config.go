// Package config holds the process configuration for the text-to-SQL service.
// Configuration is loaded once at startup and passed explicitly to every
// component that needs it; there is no package-level state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LLM holds the language-model gateway settings.
type LLM struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Database holds the database adapter settings.
type Database struct {
	// DSN is a pgx connection string. Empty means the mock adapter is used.
	DSN string
	// QueryTimeout bounds a single query execution.
	QueryTimeout time.Duration
}

// Config is the full process configuration.
type Config struct {
	LLM      LLM
	Database Database

	// SchemaPath points to the JSON schema catalog (tables, columns,
	// Korean aliases).
	SchemaPath string

	// ListenAddr is the HTTP listen address for the serve command.
	ListenAddr string

	// FailureLogDir is the root directory for per-session SQL failure logs.
	// Empty disables failure logging.
	FailureLogDir string

	Debug bool
}

// Load builds a Config from the environment. A .env file in the working
// directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLM: LLM{
			Model:       envOr("MODEL_NAME", "claude-3-5-haiku-20241022"),
			MaxTokens:   4096,
			Temperature: 0.1,
		},
		Database: Database{
			DSN:          os.Getenv("DATABASE_DSN"),
			QueryTimeout: 30 * time.Second,
		},
		SchemaPath:    envOr("SCHEMA_PATH", "schema/catalog.json"),
		ListenAddr:    envOr("LISTEN_ADDR", ":8080"),
		FailureLogDir: os.Getenv("FAILURE_LOG_DIR"),
		Debug:         envOr("DEBUG", "false") == "true",
	}

	if v := os.Getenv("MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_TOKENS %q: %w", v, err)
		}
		cfg.LLM.MaxTokens = n
	}

	if v := os.Getenv("TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TEMPERATURE %q: %w", v, err)
		}
		cfg.LLM.Temperature = f
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid QUERY_TIMEOUT %q: %w", v, err)
		}
		cfg.Database.QueryTimeout = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
