package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Mode selects which gateway implementation is constructed.
const (
	ModeMock       = "mock"
	ModeProduction = "production"
)

// Config holds all payment gateway configuration.
type Config struct {
	Gateway  GatewayConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

// GatewayConfig holds Ghișeul.ro gateway configuration.
type GatewayConfig struct {
	Mode            string        // mock or production
	APIBaseURL      string        // Base URL for the real Ghișeul.ro API
	APIKey          string        // Bearer key for the real API
	WebhookSecret   string        // Shared secret for webhook HMAC signatures
	CheckoutBaseURL string        // Host portal base URL; mock checkout page lives under it
	SessionTTL      time.Duration // Pending→checkout window (default 30m)
	WebhookDelayMin time.Duration // Settlement notification delay window
	WebhookDelayMax time.Duration
	RequestTimeout  time.Duration // Per-request timeout for API and webhook calls
}

// DatabaseConfig holds the authoritative store's connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds the optional distributed-lock backend. An empty URL
// selects the in-process locker.
type RedisConfig struct {
	URL string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Gateway: GatewayConfig{
			Mode:            getEnv("GHISEUL_MODE", ModeMock),
			APIBaseURL:      getEnv("GHISEUL_API_URL", "https://api.ghiseul.ro"),
			APIKey:          getEnv("GHISEUL_API_KEY", ""),
			WebhookSecret:   getEnv("GHISEUL_WEBHOOK_SECRET", ""),
			CheckoutBaseURL: getEnv("GHISEUL_CHECKOUT_BASE_URL", "http://localhost:3000"),
			SessionTTL:      getEnvAsDuration("GHISEUL_SESSION_TTL", 30*time.Minute),
			WebhookDelayMin: getEnvAsDuration("GHISEUL_WEBHOOK_DELAY_MIN", 30*time.Second),
			WebhookDelayMax: getEnvAsDuration("GHISEUL_WEBHOOK_DELAY_MAX", 120*time.Second),
			RequestTimeout:  getEnvAsDuration("GHISEUL_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Gateway.Mode != ModeMock && cfg.Gateway.Mode != ModeProduction {
		return nil, fmt.Errorf("GHISEUL_MODE must be %q or %q, got %q", ModeMock, ModeProduction, cfg.Gateway.Mode)
	}
	if cfg.Gateway.WebhookSecret == "" {
		return nil, fmt.Errorf("GHISEUL_WEBHOOK_SECRET is required")
	}
	if cfg.Gateway.Mode == ModeProduction && cfg.Gateway.APIKey == "" {
		return nil, fmt.Errorf("GHISEUL_API_KEY is required in production mode")
	}
	if cfg.Gateway.WebhookDelayMax < cfg.Gateway.WebhookDelayMin {
		return nil, fmt.Errorf("GHISEUL_WEBHOOK_DELAY_MAX must be >= GHISEUL_WEBHOOK_DELAY_MIN")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
