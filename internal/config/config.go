// Package config loads process configuration from the environment and builds
// the shared logger.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"foodcost/internal/core"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	DBMaxConns       int32 // zero keeps the pgx default
	ServerPort       string
	AllowedOrigins   []string
	JWTSecret        string
	LogLevel         string
	ReadOnlyMode     bool
	LicenseExpiresAt time.Time // zero means no expiry
	RedisURL         string    // empty selects the in-process lock
	LockTTL          time.Duration
}

// Load reads .env when present, then the environment. Variables already set
// in the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply values
// without touching the process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL: getenv("DATABASE_URL"),
		ServerPort:  getenv("SERVER_PORT"),
		JWTSecret:   getenv("JWT_SECRET"),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL"))),
		RedisURL:    getenv("REDIS_URL"),
		LockTTL:     30 * time.Second,
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if v := getenv("READ_ONLY_MODE"); v != "" {
		ro, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid READ_ONLY_MODE %q: %w", v, err)
		}
		cfg.ReadOnlyMode = ro
	}

	if v := getenv("LICENSE_EXPIRES_AT"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid LICENSE_EXPIRES_AT %q (want YYYY-MM-DD): %w", v, err)
		}
		// The license is valid through the whole expiry day.
		cfg.LicenseExpiresAt = t.Add(24*time.Hour - time.Nanosecond)
	}

	if v := getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid DB_MAX_CONNS %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}

	if v := getenv("LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCK_TTL %q: %w", v, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("LOCK_TTL must be positive, got %s", d)
		}
		cfg.LockTTL = d
	}

	return cfg, nil
}

// WriteGuard returns the guard matching READ_ONLY_MODE and LICENSE_EXPIRES_AT.
func (c *Config) WriteGuard() core.WriteGuard {
	if !c.ReadOnlyMode && c.LicenseExpiresAt.IsZero() {
		return core.AllowWrites{}
	}
	return core.LicenseGuard{ReadOnly: c.ReadOnlyMode, ExpiresAt: c.LicenseExpiresAt}
}
