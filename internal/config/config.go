package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Normalizer strategies.
const (
	NormalizerCSV = "csv"
	NormalizerLLM = "llm"
)

// Data backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	LogLevel string

	// Normalization
	Normalizer     string
	GeminiAPIKey   string
	GeminiModel    string
	MaxUploadBytes int64

	// Auth
	AuthSecret string
	TokenTTL   time.Duration

	// Persistence
	DataBackend      string
	SQLiteDBPath     string
	BigQueryProject  string
	BigQueryDataset  string
	StatementsBucket string
	StatementsDir    string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Jobs
	JobWorkers    int
	JobBufferSize int

	// RulesFile points at an optional YAML file with analysis rules.
	RulesFile string
	Rules     Rules
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		Normalizer:     strings.ToLower(getEnv("NORMALIZER", NormalizerLLM)),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		AuthSecret: getEnv("AUTH_SECRET", ""),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 24*time.Hour),

		DataBackend:      strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/dashboard.db"),
		BigQueryProject:  getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset:  getEnv("BIGQUERY_DATASET", "finance"),
		StatementsBucket: getEnv("STATEMENTS_BUCKET", ""),
		StatementsDir:    getEnv("STATEMENTS_DIR", "./data/statements"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dashboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "normalize_statements"),

		JobWorkers:    getEnvInt("JOB_WORKERS", 5),
		JobBufferSize: getEnvInt("JOB_BUFFER_SIZE", 100),

		RulesFile: getEnv("RULES_FILE", ""),
		Rules:     DefaultRules(),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		cfg.Rules = rules
	}

	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Normalizer {
	case NormalizerCSV:
	case NormalizerLLM:
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when using the llm normalizer")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid normalizer '%s': must be one of [%s %s]", c.Normalizer, NormalizerCSV, NormalizerLLM))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" {
			errors = append(errors, "BIGQUERY_PROJECT is required when using bigquery backend")
		}
		if c.BigQueryDataset == "" {
			errors = append(errors, "BIGQUERY_DATASET cannot be empty when using bigquery backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]", c.DataBackend, BackendMemory, BackendSQLite, BackendBigQuery))
	}

	if c.StatementsBucket == "" && c.StatementsDir == "" {
		errors = append(errors, "either STATEMENTS_BUCKET or STATEMENTS_DIR must be set")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.JobWorkers < 1 || c.JobWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid job worker count %d: must be between 1 and 64", c.JobWorkers))
	}
	if c.JobBufferSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid job buffer size %d: must be at least 1", c.JobBufferSize))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if err := c.Rules.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateAuth reports whether the API can verify bearer tokens.
func (c *Config) ValidateAuth() error {
	if len(c.AuthSecret) < 16 {
		return fmt.Errorf("AUTH_SECRET must be at least 16 characters")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
