// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the roomcast service.
package server

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

const (
	defaultPort           = ":8888"
	defaultCacheSize      = 200
	defaultMaxMessageSize = 512
	defaultRatePerSecond  = rate.Limit(5)
	defaultRateBurst      = 10
)

// RateLimitConfig defines the parameters for per-session inbound message
// rate limiting.
type RateLimitConfig struct {
	PerSecond rate.Limit
	Burst     int
}

// Config holds the server configuration settings. AllowedOrigins is an
// explicit origin allow-list; when empty, cross-origin checks fall back to a
// same-origin-as-host policy. A single "*" entry allows any origin.
type Config struct {
	Port           string
	CacheSize      int
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort,
		CacheSize:      defaultCacheSize,
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			PerSecond: defaultRatePerSecond,
			Burst:     defaultRateBurst,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit.PerSecond = defaultRatePerSecond
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set or
// fail to parse.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if size := os.Getenv("CACHE_SIZE"); size != "" {
		cfg.CacheSize = parseIntValue(size, cfg.CacheSize)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if perSecond := os.Getenv("RATE_LIMIT_PER_SECOND"); perSecond != "" {
		cfg.RateLimit.PerSecond = rate.Limit(parseIntValue(perSecond, int(cfg.RateLimit.PerSecond)))
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
