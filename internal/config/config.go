package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Values are read once at
// startup and passed explicitly into constructors; nothing reads the
// environment after Load returns.
type Config struct {
	Port string
	Env  string

	// Store backends, checked in order: Mongo, Postgres, SQLite fallback.
	MongoURL    string
	DatabaseURL string
	SQLitePath  string

	// Redis is optional; when set, request rate limiting is enabled.
	RedisURL string

	// Bearer credential signing.
	TokenSecret string
	TokenTTL    time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	ttl := 7 * 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		MongoURL:    os.Getenv("MONGO_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/wireline.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		TokenSecret: getEnv("JWT_SECRET", "wireline-dev-secret"),
		TokenTTL:    ttl,
	}

	if cfg.Env == "production" {
		if os.Getenv("JWT_SECRET") == "" {
			panic("JWT_SECRET is required in production")
		}
		if cfg.MongoURL == "" && cfg.DatabaseURL == "" {
			panic("MONGO_URL or DATABASE_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
