package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.TokenLifetime() != 72*time.Hour {
		t.Errorf("TokenLifetime %v, want 72h", cfg.TokenLifetime())
	}
	if cfg.Freshness() != 15*time.Minute {
		t.Errorf("Freshness %v, want 15m", cfg.Freshness())
	}
	if cfg.Staleness() != 72*time.Hour {
		t.Errorf("Staleness %v, want 72h", cfg.Staleness())
	}
	if cfg.Debounce() != 5*time.Minute {
		t.Errorf("Debounce %v, want 5m", cfg.Debounce())
	}
	if cfg.OTPLifetime() != 5*time.Minute {
		t.Errorf("OTPLifetime %v, want 5m", cfg.OTPLifetime())
	}
	if cfg.OTPCooldown() != time.Minute {
		t.Errorf("OTPCooldown %v, want 60s", cfg.OTPCooldown())
	}
	if cfg.OTPMaxAttempts != 5 {
		t.Errorf("OTPMaxAttempts %d, want 5", cfg.OTPMaxAttempts)
	}
	if cfg.ReapEvery() != 5*time.Minute {
		t.Errorf("ReapEvery %v, want 5m", cfg.ReapEvery())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_TTL", "24h")
	t.Setenv("CONFLICT_FRESHNESS", "10m")
	t.Setenv("BCRYPT_COST", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenLifetime() != 24*time.Hour {
		t.Errorf("TokenLifetime %v, want 24h", cfg.TokenLifetime())
	}
	if cfg.Freshness() != 10*time.Minute {
		t.Errorf("Freshness %v, want 10m", cfg.Freshness())
	}
	if cfg.BcryptCost != 6 {
		t.Errorf("BcryptCost %d, want 6", cfg.BcryptCost)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("OTP_TTL", "not-a-duration")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTPLifetime() != 5*time.Minute {
		t.Errorf("OTPLifetime %v, want fallback 5m", cfg.OTPLifetime())
	}
}

func TestDevOTPForbiddenInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")
	if _, err := Load(); err == nil {
		t.Fatal("dev OTP mode was allowed in production")
	}
}

func TestBcryptCostBounds(t *testing.T) {
	t.Setenv("BCRYPT_COST", "99")
	if _, err := Load(); err == nil {
		t.Fatal("out-of-range bcrypt cost was accepted")
	}
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("origins %v", got)
	}
}
