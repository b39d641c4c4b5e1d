// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	accountdomain "vibhanet-auth/backend/internal/account/domain"
	"vibhanet-auth/backend/internal/ratelimit"
	"vibhanet-auth/backend/internal/security"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API and static pages listen on (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production"). Production
	// switches on Secure cookies, JSON logs and gin release mode.
	Env string `mapstructure:"APP_ENV"`
	// CORSAllowedOrigins is a comma-separated origin list; empty reflects any origin.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// PublicDir holds index.html, dashboard.html and static assets.
	PublicDir string `mapstructure:"PUBLIC_DIR"`
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs whose
	// X-Forwarded-For header is honored. Empty uses the socket peer address only.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	SessionTTLDays    int    `mapstructure:"SESSION_TTL_DAYS"`
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`

	// Argon2 cost for new hashes. Existing hashes carry their own parameters.
	Argon2MemoryMB    int `mapstructure:"ARGON2_MEMORY_MB"`
	Argon2Iterations  int `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism int `mapstructure:"ARGON2_PARALLELISM"`

	LoginPerIPPerMinute    int `mapstructure:"RATE_LIMIT_LOGIN_PER_IP_PER_MINUTE"`
	LoginPerPhonePerMinute int `mapstructure:"RATE_LIMIT_LOGIN_PER_PHONE_PER_MINUTE"`
	SignupPerIPPerMinute   int `mapstructure:"RATE_LIMIT_SIGNUP_PER_IP_PER_MINUTE"`

	LockoutThreshold       int `mapstructure:"LOCKOUT_THRESHOLD"`
	LockoutWindowMinutes   int `mapstructure:"LOCKOUT_WINDOW_MINUTES"`
	LockoutDurationMinutes int `mapstructure:"LOCKOUT_DURATION_MINUTES"`

	// Telemetry (optional). When the endpoint is empty, providers are built without exporters.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("SESSION_TTL_DAYS", 14)
	v.SetDefault("SESSION_COOKIE_NAME", "sid")
	v.SetDefault("ARGON2_MEMORY_MB", 64)
	v.SetDefault("ARGON2_ITERATIONS", 2)
	v.SetDefault("ARGON2_PARALLELISM", 1)
	v.SetDefault("RATE_LIMIT_LOGIN_PER_IP_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT_LOGIN_PER_PHONE_PER_MINUTE", 5)
	v.SetDefault("RATE_LIMIT_SIGNUP_PER_IP_PER_MINUTE", 3)
	v.SetDefault("LOCKOUT_THRESHOLD", 6)
	v.SetDefault("LOCKOUT_WINDOW_MINUTES", 10)
	v.SetDefault("LOCKOUT_DURATION_MINUTES", 15)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "vibhanet-auth")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if strings.TrimSpace(cfg.SessionCookieName) == "" {
		return nil, errors.New("config: SESSION_COOKIE_NAME must be set")
	}
	for _, p := range []struct {
		name string
		val  int
	}{
		{"SESSION_TTL_DAYS", cfg.SessionTTLDays},
		{"ARGON2_MEMORY_MB", cfg.Argon2MemoryMB},
		{"ARGON2_ITERATIONS", cfg.Argon2Iterations},
		{"ARGON2_PARALLELISM", cfg.Argon2Parallelism},
		{"RATE_LIMIT_LOGIN_PER_IP_PER_MINUTE", cfg.LoginPerIPPerMinute},
		{"RATE_LIMIT_LOGIN_PER_PHONE_PER_MINUTE", cfg.LoginPerPhonePerMinute},
		{"RATE_LIMIT_SIGNUP_PER_IP_PER_MINUTE", cfg.SignupPerIPPerMinute},
		{"LOCKOUT_THRESHOLD", cfg.LockoutThreshold},
		{"LOCKOUT_WINDOW_MINUTES", cfg.LockoutWindowMinutes},
		{"LOCKOUT_DURATION_MINUTES", cfg.LockoutDurationMinutes},
	} {
		if p.val <= 0 {
			return nil, errors.New("config: " + p.name + " must be positive")
		}
	}
	if cfg.Argon2MemoryMB*1024 > security.MaxArgon2Memory {
		return nil, fmt.Errorf("config: ARGON2_MEMORY_MB must be at most %d", security.MaxArgon2Memory/1024)
	}
	if cfg.Argon2Iterations > security.MaxArgon2Iterations {
		return nil, fmt.Errorf("config: ARGON2_ITERATIONS must be at most %d", security.MaxArgon2Iterations)
	}
	if cfg.Argon2Parallelism > 255 {
		return nil, errors.New("config: ARGON2_PARALLELISM must be at most 255")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// SessionTTL is the fixed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

// LockoutWindow is the configured lockout window. It is validated and exposed but does
// not affect failure counting; only a successful login resets the count.
func (c *Config) LockoutWindow() time.Duration {
	return time.Duration(c.LockoutWindowMinutes) * time.Minute
}

// LockoutDuration is how long an account stays locked.
func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMinutes) * time.Minute
}

// Argon2 returns the hashing cost for new passwords. Memory is converted to KiB.
func (c *Config) Argon2() security.Argon2Params {
	return security.Argon2Params{
		Memory:      uint32(c.Argon2MemoryMB) * 1024,
		Iterations:  uint32(c.Argon2Iterations),
		Parallelism: uint8(c.Argon2Parallelism),
	}
}

// SignupPerIP is the per-client-IP signup quota.
func (c *Config) SignupPerIP() ratelimit.Rule {
	return ratelimit.Rule{Limit: c.SignupPerIPPerMinute, Window: time.Minute}
}

// LoginPerIP is the per-client-IP login quota.
func (c *Config) LoginPerIP() ratelimit.Rule {
	return ratelimit.Rule{Limit: c.LoginPerIPPerMinute, Window: time.Minute}
}

// LoginPerPhone is the per-canonical-phone login quota.
func (c *Config) LoginPerPhone() ratelimit.Rule {
	return ratelimit.Rule{Limit: c.LoginPerPhonePerMinute, Window: time.Minute}
}

// Lockout returns the account lockout policy.
func (c *Config) Lockout() accountdomain.LockoutPolicy {
	return accountdomain.LockoutPolicy{
		Threshold: c.LockoutThreshold,
		Duration:  c.LockoutDuration(),
	}
}

// AllowedOrigins returns CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxyList returns the trusted proxy addresses from the comma-separated config.
func (c *Config) TrustedProxyList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
