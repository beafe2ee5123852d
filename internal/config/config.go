// Package config loads backend configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the daemon needs to start.
type Config struct {
	// BackendURL is the base URL of the remote row store.
	BackendURL string
	// BackendKey authenticates requests against the backend.
	BackendKey string
	// DataDir holds the local SQLite store.
	DataDir string
	// ProbeURL is the endpoint polled to observe connectivity. Defaults to
	// the backend URL.
	ProbeURL string
	// ProbeInterval is how often connectivity is polled.
	ProbeInterval time.Duration
	// LogLevel is the minimum zap level.
	LogLevel string
}

// getEnvWithDefault gets an environment variable or returns def if not set.
func getEnvWithDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// Load reads configuration from a .env file (when present) and the
// environment, and validates required values.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL: os.Getenv("BACKEND_URL"),
		BackendKey: os.Getenv("BACKEND_API_KEY"),
		DataDir:    getEnvWithDefault("DATA_DIR", "data"),
		ProbeURL:   os.Getenv("PROBE_URL"),
		LogLevel:   getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend URL is required. Set BACKEND_URL env var")
	}
	if cfg.BackendKey == "" {
		return nil, fmt.Errorf("backend API key is required. Set BACKEND_API_KEY env var")
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.BackendURL
	}

	interval := getEnvWithDefault("PROBE_INTERVAL", "10s")
	parsed, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL %q: %w", interval, err)
	}
	if parsed <= 0 {
		return nil, fmt.Errorf("PROBE_INTERVAL must be positive, got %q", interval)
	}
	cfg.ProbeInterval = parsed

	return cfg, nil
}
