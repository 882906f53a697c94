// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	SessionTTL  time.Duration // lifetime of a session issued for an access hash
	AdminSecret string        // Admin API secret

	// Governance
	EligibleVoterFloor int           // minimum denominator for participation rate
	FinalizeInterval   time.Duration // how often the proposal finalizer scans for due proposals

	// Limits
	RateLimitRPM int // requests per minute per client on write endpoints

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled if empty
}

// Defaults
const (
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultSessionTTL         = 24 * time.Hour
	DefaultEligibleVoterFloor = 1
	DefaultFinalizeInterval   = time.Minute
	DefaultRateLimitRPM       = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		SessionTTL:         getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		EligibleVoterFloor: int(getEnvInt64("ELIGIBLE_VOTER_FLOOR", DefaultEligibleVoterFloor)),
		FinalizeInterval:   getEnvDuration("FINALIZE_INTERVAL", DefaultFinalizeInterval),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.EligibleVoterFloor < 1 {
		return fmt.Errorf("ELIGIBLE_VOTER_FLOOR must be at least 1")
	}
	if c.FinalizeInterval <= 0 {
		return fmt.Errorf("FINALIZE_INTERVAL must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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
