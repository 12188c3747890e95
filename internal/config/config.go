// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	DBPath         string
	QuoteTimeout   time.Duration
	PublicQuoteURL string
	SessionSecret  string
	MetricsEnabled bool
}

// HasSessionGate returns true when a session signing secret is configured.
// Without one every request is treated as an authorised session, which is
// only suitable for local use.
func (c *Config) HasSessionGate() bool {
	return c.SessionSecret != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory (or the file named by
// SIGNALFORGE_ENV_FILE) is loaded first; variables already set in the
// environment win over the file.
// Optional variables with defaults: SIGNALFORGE_LISTEN_ADDR (127.0.0.1:8080),
// SIGNALFORGE_DB_PATH (signalforge.db), SIGNALFORGE_QUOTE_TIMEOUT (15s),
// SIGNALFORGE_PUBLIC_QUOTE_URL (Yahoo Finance), SIGNALFORGE_METRICS_ENABLED (true).
// SIGNALFORGE_SESSION_SECRET has no default.
func Load() (*Config, error) {
	envFile := ".env"
	if v, ok := os.LookupEnv("SIGNALFORGE_ENV_FILE"); ok {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SIGNALFORGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "signalforge.db"
	if v, ok := os.LookupEnv("SIGNALFORGE_DB_PATH"); ok {
		dbPath = v
	}

	quoteTimeout := 15 * time.Second
	if v, ok := os.LookupEnv("SIGNALFORGE_QUOTE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SIGNALFORGE_QUOTE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SIGNALFORGE_QUOTE_TIMEOUT must be positive, got %s", parsed)
		}
		quoteTimeout = parsed
	}

	publicQuoteURL := "https://query2.finance.yahoo.com"
	if v, ok := os.LookupEnv("SIGNALFORGE_PUBLIC_QUOTE_URL"); ok && v != "" {
		publicQuoteURL = v
	}

	metricsEnabled := true
	if v, ok := os.LookupEnv("SIGNALFORGE_METRICS_ENABLED"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SIGNALFORGE_METRICS_ENABLED has invalid boolean %q: %w", v, err)
		}
		metricsEnabled = parsed
	}

	return &Config{
		ListenAddr:     listenAddr,
		DBPath:         dbPath,
		QuoteTimeout:   quoteTimeout,
		PublicQuoteURL: publicQuoteURL,
		SessionSecret:  os.Getenv("SIGNALFORGE_SESSION_SECRET"),
		MetricsEnabled: metricsEnabled,
	}, nil
}
