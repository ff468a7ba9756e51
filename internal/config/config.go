// Package config loads cargo-realm data-layer configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr     = ":27080"
	defaultAPIBaseURL     = "http://localhost:27080"
	defaultDBPath         = "cargo-realm.db"
	defaultRequestTimeout = 30 * time.Second
	defaultCacheTTL       = 5 * time.Minute
	defaultMaxIDAttempts  = 5
	defaultTrackingPrefix = "CAR"
	defaultTrackingDigits = 11
)

// Config holds data-layer and reference-server configuration values.
type Config struct {
	ListenAddr string
	APIBaseURL string
	DBPath     string
	LogLevel   string
	Token      string

	DevMode bool

	RequestTimeout time.Duration
	CacheTTL       time.Duration

	MaxIDAttempts  int
	TrackingPrefix string
	TrackingDigits int
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOrDefault("CARGO_LISTEN_ADDR", defaultListenAddr),
		APIBaseURL:     envOrDefault("CARGO_API_BASE_URL", defaultAPIBaseURL),
		DBPath:         envOrDefault("CARGO_DB_PATH", defaultDBPath),
		LogLevel:       strings.ToLower(envOrDefault("CARGO_LOG_LEVEL", "info")),
		Token:          envOrDefault("CARGO_TOKEN", ""),
		DevMode:        envBool("CARGO_DEV_MODE", false),
		RequestTimeout: envPositiveDuration("CARGO_REQUEST_TIMEOUT", defaultRequestTimeout),
		CacheTTL:       envPositiveDuration("CARGO_CACHE_TTL", defaultCacheTTL),
		MaxIDAttempts:  envPositiveInt("CARGO_MAX_ID_ATTEMPTS", defaultMaxIDAttempts),
		TrackingPrefix: envOrDefault("CARGO_TRACKING_PREFIX", defaultTrackingPrefix),
		TrackingDigits: envPositiveInt("CARGO_TRACKING_DIGITS", defaultTrackingDigits),
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("CARGO_API_BASE_URL is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return Config{}, fmt.Errorf("CARGO_DB_PATH is required")
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
