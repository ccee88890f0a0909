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
	Port     int
	DevMode  bool
	LogLevel string

	DataDir      string // Base directory for the database and generated files
	DatabasePath string

	BaseURL       string // Public URL used in confirmation/reset links
	SessionSecret string // Signs session cookies and email tokens

	// SMTP settings for transactional mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// External services
	ForecastServiceURL string
	OpenAIAPIKey       string

	// Optional S3 backup target; backups are skipped when the bucket is empty
	BackupBucket string
	BackupRegion string

	// Upstream market data throttling
	MarketDataRateLimit float64 // requests per second
	MarketDataBurst     int

	CacheTTL         time.Duration // daily-resolution market data
	IntradayCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WMS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir:      absDataDir,
		DatabasePath: filepath.Join(absDataDir, "watchmystocks.db"),

		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		SessionSecret: getEnv("SESSION_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@watchmystocks.local"),

		ForecastServiceURL: getEnv("FORECAST_SERVICE_URL", "http://localhost:9000"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),

		BackupBucket: getEnv("BACKUP_S3_BUCKET", ""),
		BackupRegion: getEnv("BACKUP_S3_REGION", "us-east-1"),

		MarketDataRateLimit: getEnvAsFloat("MARKET_DATA_RATE_LIMIT", 5),
		MarketDataBurst:     getEnvAsInt("MARKET_DATA_BURST", 10),

		CacheTTL:         getEnvAsDuration("CACHE_TTL", 15*time.Minute),
		IntradayCacheTTL: getEnvAsDuration("INTRADAY_CACHE_TTL", 2*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		if !c.DevMode {
			return fmt.Errorf("SESSION_SECRET is required outside dev mode")
		}
		// Predictable secret is acceptable for local development only
		c.SessionSecret = "dev-session-secret"
	}

	if !c.DevMode && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required outside dev mode")
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
