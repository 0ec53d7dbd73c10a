// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// ErrMissingCSRFSecret is returned in production when no CSRF secret is configured.
var ErrMissingCSRFSecret = errors.New("KALENDER_CSRF_SECRET is required in production")

// Config holds every setting the server reads at startup.
type Config struct {
	Env       string `validate:"oneof=development production"`
	Addr      string `validate:"required"`
	StaticDir string

	Storage       string `validate:"oneof=sqlite redis memory"`
	DBPath        string `validate:"required_if=Storage sqlite"`
	RedisAddr     string `validate:"required_if=Storage redis"`
	RedisPassword string
	RedisDB       int           `validate:"min=0,max=15"`
	RedisTTL      time.Duration `validate:"min=0"`
	SlowQuery     time.Duration `validate:"min=0"`

	CSRFSecret string `validate:"omitempty,min=32"`

	ResendKey string
	EmailFrom string `validate:"required"`
	ReplyTo   string `validate:"omitempty,email"`

	LogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// Location is the time zone used for "today" and Day N dates.
	Location *time.Location `validate:"required"`

	// SessionIdle is how long an untouched calendar session stays in memory.
	SessionIdle time.Duration `validate:"min=0"`
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads the optional dotenv files, then the environment, and validates the result.
// PRE: none
// POST: Missing dotenv files are ignored; a malformed one is an error
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests can pass a map.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Env:           get("KALENDER_ENV", EnvDevelopment),
		Addr:          get("KALENDER_ADDR", ":8080"),
		StaticDir:     get("KALENDER_STATIC_DIR", "static"),
		Storage:       get("KALENDER_STORAGE", StorageSQLite),
		DBPath:        get("KALENDER_DB_PATH", "kalender.db"),
		RedisAddr:     get("KALENDER_REDIS_ADDR", ""),
		RedisPassword: getenv("KALENDER_REDIS_PASSWORD"),
		CSRFSecret:    getenv("KALENDER_CSRF_SECRET"),
		ResendKey:     getenv("KALENDER_RESEND_KEY"),
		EmailFrom:     get("KALENDER_EMAIL_FROM", "Kalender Belajar 60 Hari <noreply@example.com>"),
		ReplyTo:       get("KALENDER_REPLY_TO", ""),
		LogLevel:      strings.ToLower(get("KALENDER_LOG_LEVEL", "info")),
	}

	var err error
	if cfg.RedisDB, err = atoi(get("KALENDER_REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("config: KALENDER_REDIS_DB: %w", err)
	}
	if cfg.RedisTTL, err = time.ParseDuration(get("KALENDER_REDIS_TTL", "0s")); err != nil {
		return Config{}, fmt.Errorf("config: KALENDER_REDIS_TTL: %w", err)
	}
	if cfg.SessionIdle, err = time.ParseDuration(get("KALENDER_SESSION_IDLE", "24h")); err != nil {
		return Config{}, fmt.Errorf("config: KALENDER_SESSION_IDLE: %w", err)
	}
	slowMS, err := atoi(get("KALENDER_SLOW_QUERY_MS", "50"))
	if err != nil {
		return Config{}, fmt.Errorf("config: KALENDER_SLOW_QUERY_MS: %w", err)
	}
	cfg.SlowQuery = time.Duration(slowMS) * time.Millisecond
	if cfg.Location, err = time.LoadLocation(get("KALENDER_TZ", "Asia/Jakarta")); err != nil {
		return Config{}, fmt.Errorf("config: KALENDER_TZ: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and production requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.IsProduction() && c.CSRFSecret == "" {
		return ErrMissingCSRFSecret
	}
	return nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}
