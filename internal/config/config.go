// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Session storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	DestinationsPath string
	SiteURL          string
	SessionBackend   string
	RedisAddr        string
	SessionTTL       time.Duration
	// FetchTimeout limits one listings download. Zero means no limit.
	FetchTimeout time.Duration
	// Tracing is off unless one of the OTLP endpoints is set.
	TracesGRPCEndpoint string
	TracesHTTPEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	backend := envOrDefault("SESSION_BACKEND", BackendSQLite)
	if backend != BackendSQLite && backend != BackendRedis {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q: want %s or %s", backend, BackendSQLite, BackendRedis)
	}

	ttlMinutes, err := envInt("SESSION_TTL_MINUTES", 1440)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}

	timeoutSeconds, err := envInt("FETCH_TIMEOUT_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	if timeoutSeconds < 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must not be negative, got %d", timeoutSeconds)
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		DestinationsPath: envOrDefault("DESTINATIONS_PATH", "./data/destinations.json"),
		SiteURL:          envOrDefault("SITE_URL", "https://experience.tripster.ru"),
		SessionBackend:   backend,
		RedisAddr:        envOrDefault("REDIS_ADDR", "localhost:6379"),
		SessionTTL:       time.Duration(ttlMinutes) * time.Minute,
		FetchTimeout:     time.Duration(timeoutSeconds) * time.Second,

		TracesGRPCEndpoint: os.Getenv("OTLP_TRACES_GRPC_ENDPOINT"),
		TracesHTTPEndpoint: os.Getenv("OTLP_TRACES_HTTP_ENDPOINT"),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
