// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr     string
	DatabasePath   string
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RedisURL       string
	TracingEnabled bool
}

// Load reads the configuration. A missing .env file is fine; existing
// process environment variables are never overridden by it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8000"),
		DatabasePath:   getEnv("DATABASE_PATH", "calculations.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		TracingEnabled: getEnv("TRACING_ENABLED", "") == "true",
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	var err error
	cfg.AccessTTL, err = getDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTTL, err = getDuration("REFRESH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
