// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address used for rate limiting; empty disables rate limiting.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// JWTSecret is the HMAC signing secret for session tokens. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "safeday-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// TokenTTL is the absolute bearer token lifetime (e.g. "72h").
	TokenTTL string `mapstructure:"TOKEN_TTL"`
	// ConflictFreshness is how recently another device must have heartbeated to block a login (e.g. "15m").
	ConflictFreshness string `mapstructure:"CONFLICT_FRESHNESS"`
	// SessionStaleness is the idle bound after which a session no longer authenticates (e.g. "72h").
	SessionStaleness string `mapstructure:"SESSION_STALENESS"`
	// HeartbeatDebounce is the minimum gap between last-seen refreshes (e.g. "5m").
	HeartbeatDebounce string `mapstructure:"HEARTBEAT_DEBOUNCE"`
	// OTPTTL is the takeover passcode lifetime (e.g. "5m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPResendCooldown is the minimum gap between passcode issuances per (user, device) (e.g. "60s").
	OTPResendCooldown string `mapstructure:"OTP_RESEND_COOLDOWN"`
	// OTPMaxAttempts caps verification attempts per challenge; default 5.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// ReaperInterval is the period between session sweeps (e.g. "5m").
	ReaperInterval string `mapstructure:"REAPER_INTERVAL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// GatewayURL is the messaging gateway endpoint used to deliver takeover passcodes.
	GatewayURL string `mapstructure:"GATEWAY_URL"`
	// GatewayAPIKey authenticates against the messaging gateway.
	GatewayAPIKey string `mapstructure:"GATEWAY_API_KEY"`
	// GatewaySender is the optional sender identity for outbound messages.
	GatewaySender string `mapstructure:"GATEWAY_SENDER"`
	// OTPReturnToClient when true enables dev OTP mode: passcodes are retrievable via
	// GET /dev/otp instead of being dispatched. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// CORSAllowedOrigins is a comma-separated list of allowed origins; default "*".
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "safeday-auth")
	v.SetDefault("TOKEN_TTL", "72h")
	v.SetDefault("CONFLICT_FRESHNESS", "15m")
	v.SetDefault("SESSION_STALENESS", "72h")
	v.SetDefault("HEARTBEAT_DEBOUNCE", "5m")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_RESEND_COOLDOWN", "60s")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("REAPER_INTERVAL", "5m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("GATEWAY_URL", "")
	v.SetDefault("GATEWAY_API_KEY", "")
	v.SetDefault("GATEWAY_SENDER", "")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = 5
	}

	return &cfg, nil
}

func (c *Config) duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TokenLifetime parses TokenTTL. Returns 72h if unset or invalid.
func (c *Config) TokenLifetime() time.Duration { return c.duration(c.TokenTTL, 72*time.Hour) }

// Freshness parses ConflictFreshness. Returns 15m if unset or invalid.
func (c *Config) Freshness() time.Duration { return c.duration(c.ConflictFreshness, 15*time.Minute) }

// Staleness parses SessionStaleness. Returns 72h if unset or invalid.
func (c *Config) Staleness() time.Duration { return c.duration(c.SessionStaleness, 72*time.Hour) }

// Debounce parses HeartbeatDebounce. Returns 5m if unset or invalid.
func (c *Config) Debounce() time.Duration { return c.duration(c.HeartbeatDebounce, 5*time.Minute) }

// OTPLifetime parses OTPTTL. Returns 5m if unset or invalid.
func (c *Config) OTPLifetime() time.Duration { return c.duration(c.OTPTTL, 5*time.Minute) }

// OTPCooldown parses OTPResendCooldown. Returns 60s if unset or invalid.
func (c *Config) OTPCooldown() time.Duration { return c.duration(c.OTPResendCooldown, time.Minute) }

// ReapEvery parses ReaperInterval. Returns 5m if unset or invalid.
func (c *Config) ReapEvery() time.Duration { return c.duration(c.ReaperInterval, 5*time.Minute) }

// AllowedOrigins returns the CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
