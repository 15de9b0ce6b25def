package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"termbilling/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr        string
	APIKey          string        // Shared secret expected in the X-Api-Key header
	ShutdownTimeout time.Duration // Grace period for in-flight requests on shutdown
	AllowedOrigins  []string      // CORS origins; "*" allows any

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

// Load reads the configuration from environment variables.
// It is called once at process start; the result is passed to the components that need it.
func Load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPAddr:        getEnvWithDefault("HTTP_ADDR", ":5000"),
		APIKey:          os.Getenv("BILLING_API_KEY"),
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),

		// Logging
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", timeout, err)
		}
		config.ShutdownTimeout = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("BILLING_API_KEY is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
