// Package config loads fieldforge's runtime configuration from the
// environment: an optional .env file via joho/godotenv, then FIELDFORGE_*
// variables with typed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"fieldforge/domain/pattern"
)

// Config holds every environment-tunable knob fieldforge reads. None of
// this is read by the core profiler/parser packages themselves; only
// cmd/fieldforge consults it to build the classifier, RNG seed, and logger
// it hands to the core.
type Config struct {
	Seed        int64
	Punctuation string
	Concurrency int
	LogLevel    string
	LogFormat   string
}

// Load reads a .env file if present, then fills Config from FIELDFORGE_*
// variables and validates the result.
func Load() (*Config, error) {
	// A missing or malformed .env is non-fatal; fall back to whatever is
	// already in the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Seed:        getEnvInt64OrDefault("FIELDFORGE_SEED", 42),
		Punctuation: getEnvOrDefault("FIELDFORGE_PUNCTUATION", pattern.DefaultPunctuation),
		Concurrency: getEnvIntOrDefault("FIELDFORGE_CONCURRENCY", 1),
		LogLevel:    getEnvOrDefault("FIELDFORGE_LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("FIELDFORGE_LOG_FORMAT", "json"),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Punctuation == "" {
		return fmt.Errorf("config: FIELDFORGE_PUNCTUATION must not be empty")
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("config: FIELDFORGE_CONCURRENCY must be >= 1, got %d", cfg.Concurrency)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("config: FIELDFORGE_LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
