package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.App.Port)
	}
	if cfg.Redis.KeyPrefix != "mte:" {
		t.Fatalf("expected default key prefix mte:, got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Redis.DefaultTTL != time.Hour {
		t.Fatalf("expected default ttl 1h, got %v", cfg.Redis.DefaultTTL)
	}
	if cfg.Redis.ReconnectInterval != 3*time.Second {
		t.Fatalf("expected reconnect interval 3s, got %v", cfg.Redis.ReconnectInterval)
	}
	if cfg.Redis.DisconnectTimeout != time.Second {
		t.Fatalf("expected disconnect timeout 1s, got %v", cfg.Redis.DisconnectTimeout)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("expected redis enabled by default")
	}
	if cfg.JWT.TokenTTL != 2*time.Hour {
		t.Fatalf("expected token ttl 2h, got %v", cfg.JWT.TokenTTL)
	}
	if cfg.RateLimit.WindowDuration != time.Minute {
		t.Fatalf("expected window 1m, got %v", cfg.RateLimit.WindowDuration)
	}
	if cfg.RateLimit.LoginMaxAttempts != 5 {
		t.Fatalf("expected 5 login attempts, got %d", cfg.RateLimit.LoginMaxAttempts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MTE_APP_PORT", "8081")
	t.Setenv("MTE_REDIS_KEY_PREFIX", "other:")
	t.Setenv("MTE_JWT_SECRET", "super-secret")
	t.Setenv("MTE_RATE_LIMIT_LOGIN_MAX_ATTEMPTS", "9")
	t.Setenv("MTE_REDIS_DEFAULT_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 8081 {
		t.Fatalf("expected port override 8081, got %d", cfg.App.Port)
	}
	if cfg.Redis.KeyPrefix != "other:" {
		t.Fatalf("expected key prefix override, got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.JWT.Secret != "super-secret" {
		t.Fatalf("expected jwt secret override, got %q", cfg.JWT.Secret)
	}
	if cfg.RateLimit.LoginMaxAttempts != 9 {
		t.Fatalf("expected login attempts override 9, got %d", cfg.RateLimit.LoginMaxAttempts)
	}
	if cfg.Redis.DefaultTTL != 30*time.Minute {
		t.Fatalf("expected ttl override 30m, got %v", cfg.Redis.DefaultTTL)
	}
}
