package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"foodcost/internal/core"

	"github.com/sirupsen/logrus"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"DATABASE_URL": "postgres://x"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.LogLevel != "info" || cfg.LockTTL != 30*time.Second {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.ReadOnlyMode || !cfg.LicenseExpiresAt.IsZero() {
		t.Errorf("Writes should be enabled by default: %+v", cfg)
	}
	if _, ok := cfg.WriteGuard().(core.AllowWrites); !ok {
		t.Errorf("Expected AllowWrites, got %T", cfg.WriteGuard())
	}
}

func TestFromEnv_Parses(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"ALLOWED_ORIGINS":    " http://a.test , ,http://b.test",
		"READ_ONLY_MODE":     "true",
		"LICENSE_EXPIRES_AT": "2026-12-31",
		"LOCK_TTL":           "5s",
		"LOG_LEVEL":          "DEBUG",
		"DB_MAX_CONNS":       "8",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %q", cfg.AllowedOrigins)
	}
	if cfg.LockTTL != 5*time.Second || cfg.LogLevel != "debug" {
		t.Errorf("Unexpected ttl/level: %s %s", cfg.LockTTL, cfg.LogLevel)
	}
	if cfg.DBMaxConns != 8 {
		t.Errorf("Expected 8 max conns, got %d", cfg.DBMaxConns)
	}
	if got := cfg.LicenseExpiresAt.Format("2006-01-02 15:04"); got != "2026-12-31 23:59" {
		t.Errorf("Expected expiry at end of day, got %s", got)
	}
	if err := cfg.WriteGuard().CheckWritable(context.Background()); !errors.Is(err, core.ErrLimitReached) {
		t.Errorf("Expected read-only guard, got %v", err)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"READ_ONLY_MODE": "maybe"},
		{"LICENSE_EXPIRES_AT": "31/12/2026"},
		{"LOCK_TTL": "soon"},
		{"LOCK_TTL": "-1s"},
		{"DB_MAX_CONNS": "-2"},
	} {
		if _, err := FromEnv(envOf(env)); err == nil {
			t.Errorf("Expected error for %v", env)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("error", &buf)

	LogError(logger, "sales", "ConfirmSaleEntries", "insert invoice", map[string]int{"invoice_id": 7}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "boom" || entry["module"] != "sales" || entry["funcName"] != "ConfirmSaleEntries" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
	if entry["level"] != logrus.ErrorLevel.String() {
		t.Errorf("Expected error level, got %v", entry["level"])
	}
}
