package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// TestFromEnv_Defaults verifies the development defaults.
func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "kalender.db", cfg.DBPath)
	assert.Equal(t, 50*time.Millisecond, cfg.SlowQuery)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdle)
	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsProduction())
}

// TestFromEnv_Overrides verifies every variable is read.
func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"KALENDER_ENV":           "production",
		"KALENDER_ADDR":          ":9090",
		"KALENDER_STORAGE":       "redis",
		"KALENDER_REDIS_ADDR":    "localhost:6379",
		"KALENDER_REDIS_DB":      "2",
		"KALENDER_REDIS_TTL":     "720h",
		"KALENDER_CSRF_SECRET":   "0123456789abcdef0123456789abcdef",
		"KALENDER_REPLY_TO":      "halo@example.com",
		"KALENDER_SLOW_QUERY_MS": "200",
		"KALENDER_LOG_LEVEL":     "DEBUG",
		"KALENDER_TZ":            "Asia/Makassar",
		"KALENDER_SESSION_IDLE":  "2h",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 720*time.Hour, cfg.RedisTTL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQuery)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Asia/Makassar", cfg.Location.String())
	assert.Equal(t, 2*time.Hour, cfg.SessionIdle)
}

// TestFromEnv_Invalid verifies rejected configurations.
func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage", map[string]string{"KALENDER_STORAGE": "mongo"}},
		{"redis without addr", map[string]string{"KALENDER_STORAGE": "redis"}},
		{"bad redis db", map[string]string{"KALENDER_REDIS_DB": "x"}},
		{"redis db out of range", map[string]string{"KALENDER_REDIS_DB": "16"}},
		{"bad slow query", map[string]string{"KALENDER_SLOW_QUERY_MS": "fast"}},
		{"bad ttl", map[string]string{"KALENDER_REDIS_TTL": "forever"}},
		{"unknown env", map[string]string{"KALENDER_ENV": "staging"}},
		{"short csrf secret", map[string]string{"KALENDER_CSRF_SECRET": "short"}},
		{"bad reply to", map[string]string{"KALENDER_REPLY_TO": "nobody"}},
		{"bad log level", map[string]string{"KALENDER_LOG_LEVEL": "trace"}},
		{"bad tz", map[string]string{"KALENDER_TZ": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

// TestFromEnv_ProductionNeedsCSRFSecret verifies the production guard.
func TestFromEnv_ProductionNeedsCSRFSecret(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"KALENDER_ENV": "production"}))
	assert.True(t, errors.Is(err, ErrMissingCSRFSecret), "got %v", err)
}

// TestLoad_DotEnv verifies .env values apply without overriding the real environment.
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("KALENDER_ADDR=:7070\nKALENDER_STORAGE=memory\n"), 0o600))
	t.Setenv("KALENDER_STORAGE", "sqlite")
	// Registered with t.Setenv so the value loaded from the file is cleaned up.
	t.Setenv("KALENDER_ADDR", "")
	os.Unsetenv("KALENDER_ADDR")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, StorageSQLite, cfg.Storage)
}
