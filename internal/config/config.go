// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for the cache database (always absolute)
	EmbeddingServiceURL string // Optional embedding service; "" disables semantic similarity
	LogLevel            string
	Port                int
	DevMode             bool

	CacheTTL time.Duration // How long query results stay cached

	// Temporal-decay half-lives in days
	HalfLifeDays        float64
	OutcomeHalfLifeDays float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and ensure it exists
	dataDir := getEnv("PRECEDENT_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("PORT", 8010),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CacheTTL:            time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 60)) * time.Minute,
		HalfLifeDays:        getEnvAsFloat("HALF_LIFE_DAYS", 30),
		OutcomeHalfLifeDays: getEnvAsFloat("OUTCOME_HALF_LIFE_DAYS", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.HalfLifeDays <= 0 || c.OutcomeHalfLifeDays <= 0 {
		return fmt.Errorf("half-lives must be positive: general %f, outcome %f", c.HalfLifeDays, c.OutcomeHalfLifeDays)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive: %s", c.CacheTTL)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
