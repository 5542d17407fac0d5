// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	JWTSecret       string
	JWTTTLHours     int
	ServiceUsername string // service console credentials, to be replaced with IAM integration
	ServicePassword string

	// Security
	RateLimitRPM   int
	RateLimitBurst int
	CORSOrigins    []string

	// Demo data
	AutoSeedData bool

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)

	// Risk thresholds used by dashboards and listings
	HighRiskThreshold       int
	SuspiciousRiskThreshold int
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultJWTTTLHours     = 12
	DefaultRateLimitRPM    = 100
	DefaultRateLimitBurst  = 10
	DefaultHighRisk        = 75
	DefaultSuspiciousRisk  = 70
	DefaultServiceUsername = "security_console"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", DefaultPort),
		Env:                     getEnv("ENV", DefaultEnv),
		LogLevel:                getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		DatabaseURL:             os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		JWTSecret:               os.Getenv("JWT_SECRET"),
		JWTTTLHours:             getEnvInt("JWT_TTL_HOURS", DefaultJWTTTLHours),
		ServiceUsername:         getEnv("SERVICE_USERNAME", DefaultServiceUsername),
		ServicePassword:         os.Getenv("SERVICE_PASSWORD"),
		RateLimitRPM:            getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
		RateLimitBurst:          getEnvInt("RATE_LIMIT_BURST", DefaultRateLimitBurst),
		CORSOrigins:             splitList(getEnv("CORS_ORIGINS", "*")),
		AutoSeedData:            getEnvBool("AUTO_SEED_DATA", true),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HighRiskThreshold:       getEnvInt("HIGH_RISK_THRESHOLD", DefaultHighRisk),
		SuspiciousRiskThreshold: getEnvInt("SUSPICIOUS_RISK_THRESHOLD", DefaultSuspiciousRisk),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		// Development fallback so the demo runs out of the box
		c.JWTSecret = "super-secret-signing-key"
	}

	if c.ServicePassword == "" {
		if c.IsProduction() {
			return fmt.Errorf("SERVICE_PASSWORD is required in production")
		}
		c.ServicePassword = "letmein123"
	}

	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
