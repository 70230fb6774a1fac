// Package config provides centralized configuration loading for tvargenta.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all tvargenta service configuration.
type Config struct {
	// Core
	ContentRoot string
	Port        string

	// Scheduling
	SchedulerSeed int64

	// Redis (optional; falls back to an in-memory rate limiter when unset)
	RedisURL string

	// Admin auth. AdminJWTPrevSecret is optional: set it during a secret
	// rotation so tokens minted under the old secret keep validating until
	// they expire, then drop it once the old TTL window has passed.
	AdminJWTSecret     string
	AdminJWTPrevSecret string
	AdminPasswordHash  string

	// Error reporting (optional; no-op when unset)
	SentryDSN string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	c := &Config{
		ContentRoot:        getenv("TVARGENTA_CONTENT_ROOT", "/var/lib/tvargenta"),
		Port:               getenv("PORT", "8080"),
		SchedulerSeed:      getEnvInt64("TVARGENTA_SCHEDULER_SEED", 0),
		RedisURL:           os.Getenv("REDIS_URL"),
		AdminJWTSecret:     getenv("TVARGENTA_ADMIN_JWT_SECRET", ""),
		AdminJWTPrevSecret: os.Getenv("TVARGENTA_ADMIN_JWT_PREV_SECRET"),
		AdminPasswordHash:  os.Getenv("TVARGENTA_ADMIN_PASSWORD_HASH"),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		LogLevel:           getenv("TVARGENTA_LOG_LEVEL", "info"),
	}

	if c.AdminJWTSecret == "" {
		return nil, fmt.Errorf("TVARGENTA_ADMIN_JWT_SECRET is required")
	}
	if len(c.AdminJWTSecret) < 32 {
		return nil, fmt.Errorf("TVARGENTA_ADMIN_JWT_SECRET must be at least 32 characters")
	}

	return c, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
