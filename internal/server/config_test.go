package server

import (
	"testing"

	"golang.org/x/time/rate"
)

// TestNewConfigDefaults verifies the default configuration values.
func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Port != ":8888" {
		t.Errorf("Port = %q, want :8888", cfg.Port)
	}
	if cfg.CacheSize != 200 {
		t.Errorf("CacheSize = %d, want 200", cfg.CacheSize)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("MaxMessageSize = %d, want 512", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.PerSecond <= 0 || cfg.RateLimit.Burst <= 0 {
		t.Errorf("RateLimit = %+v, want positive defaults", cfg.RateLimit)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want empty (same-origin policy)", cfg.AllowedOrigins)
	}
}

// TestNewConfigFromEnv verifies environment overrides and fallback on
// unparseable values.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("CACHE_SIZE", "50")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_PER_SECOND", "7")
	t.Setenv("RATE_LIMIT_BURST", "14")

	cfg := NewConfigFromEnv()

	if cfg.Port != ":9999" {
		t.Errorf("Port = %q, want :9999", cfg.Port)
	}
	if cfg.CacheSize != 50 {
		t.Errorf("CacheSize = %d, want 50", cfg.CacheSize)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.test" || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v, want trimmed two-entry list", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("MaxMessageSize = %d, want 1024", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.PerSecond != rate.Limit(7) {
		t.Errorf("RateLimit.PerSecond = %v, want 7", cfg.RateLimit.PerSecond)
	}
	if cfg.RateLimit.Burst != 14 {
		t.Errorf("RateLimit.Burst = %d, want 14", cfg.RateLimit.Burst)
	}
}

// TestNewConfigFromEnvInvalidValues verifies bad values fall back to defaults.
func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("CACHE_SIZE", "not-a-number")
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg := NewConfigFromEnv()

	if cfg.CacheSize != 200 {
		t.Errorf("CacheSize = %d, want default 200", cfg.CacheSize)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("MaxMessageSize = %d, want default 512", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit.Burst = %d, want default 10", cfg.RateLimit.Burst)
	}
}
