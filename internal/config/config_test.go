package config

import (
	"os"
	"reflect"
	"testing"
	"time"

	accountdomain "vibhanet-auth/backend/internal/account/domain"
	"vibhanet-auth/backend/internal/ratelimit"
	"vibhanet-auth/backend/internal/security"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.SessionCookieName != "sid" {
		t.Errorf("SessionCookieName = %q, want sid", cfg.SessionCookieName)
	}
	if cfg.SessionTTL() != 14*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 336h", cfg.SessionTTL())
	}
	if cfg.OTelServiceName != "vibhanet-auth" {
		t.Errorf("OTelServiceName = %q, want vibhanet-auth", cfg.OTelServiceName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should default to false")
	}
	if got := cfg.AllowedOrigins(); got != nil {
		t.Errorf("AllowedOrigins = %v, want nil", got)
	}
	if got := cfg.TrustedProxyList(); got != nil {
		t.Errorf("TrustedProxyList = %v, want nil", got)
	}
}

func TestLoad_PolicyDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.SignupPerIP(), (ratelimit.Rule{Limit: 3, Window: time.Minute}); got != want {
		t.Errorf("SignupPerIP = %+v, want %+v", got, want)
	}
	if got, want := cfg.LoginPerIP(), (ratelimit.Rule{Limit: 10, Window: time.Minute}); got != want {
		t.Errorf("LoginPerIP = %+v, want %+v", got, want)
	}
	if got, want := cfg.LoginPerPhone(), (ratelimit.Rule{Limit: 5, Window: time.Minute}); got != want {
		t.Errorf("LoginPerPhone = %+v, want %+v", got, want)
	}
	want := accountdomain.LockoutPolicy{Threshold: 6, Duration: 15 * time.Minute}
	if got := cfg.Lockout(); got != want {
		t.Errorf("Lockout = %+v, want %+v", got, want)
	}
	if cfg.LockoutWindow() != 10*time.Minute {
		t.Errorf("LockoutWindow = %v, want 10m", cfg.LockoutWindow())
	}
	if got := cfg.Argon2(); got != security.DefaultArgon2Params {
		t.Errorf("Argon2 = %+v, want %+v", got, security.DefaultArgon2Params)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8000")
	os.Setenv("APP_ENV", "production")
	os.Setenv("SESSION_TTL_DAYS", "7")
	os.Setenv("LOCKOUT_DURATION_MINUTES", "30")
	os.Setenv("ARGON2_MEMORY_MB", "32")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want :8000", cfg.HTTPAddr)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
	if cfg.SessionTTL() != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 168h", cfg.SessionTTL())
	}
	if cfg.LockoutDuration() != 30*time.Minute {
		t.Errorf("LockoutDuration = %v, want 30m", cfg.LockoutDuration())
	}
	if cfg.Argon2().Memory != 32*1024 {
		t.Errorf("Argon2.Memory = %d, want %d", cfg.Argon2().Memory, 32*1024)
	}
	want := []string{"https://a.example", "https://b.example"}
	if got := cfg.AllowedOrigins(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins = %v, want %v", got, want)
	}
	wantProxies := []string{"10.0.0.0/8", "192.0.2.1"}
	if got := cfg.TrustedProxyList(); !reflect.DeepEqual(got, wantProxies) {
		t.Errorf("TrustedProxyList = %v, want %v", got, wantProxies)
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		key, val, wantErr string
	}{
		{"HTTP_ADDR", "", ""},
		{"SESSION_TTL_DAYS", "0", "config: SESSION_TTL_DAYS must be positive"},
		{"LOCKOUT_THRESHOLD", "-1", "config: LOCKOUT_THRESHOLD must be positive"},
		{"RATE_LIMIT_LOGIN_PER_IP_PER_MINUTE", "0", "config: RATE_LIMIT_LOGIN_PER_IP_PER_MINUTE must be positive"},
		{"ARGON2_PARALLELISM", "300", "config: ARGON2_PARALLELISM must be at most 255"},
		{"ARGON2_MEMORY_MB", "4096", "config: ARGON2_MEMORY_MB must be at most 1024"},
		{"ARGON2_ITERATIONS", "100", "config: ARGON2_ITERATIONS must be at most 64"},
		{"SESSION_COOKIE_NAME", " ", "config: SESSION_COOKIE_NAME must be set"},
	}
	for _, tc := range testCases {
		os.Clearenv()
		os.Setenv(tc.key, tc.val)
		cfg, err := Load()
		if tc.wantErr == "" {
			// An empty env var is treated as unset by viper, so the default applies.
			if err != nil {
				t.Errorf("%s=%q: unexpected error %v", tc.key, tc.val, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s=%q: expected error", tc.key, tc.val)
			continue
		}
		if cfg != nil {
			t.Errorf("%s=%q: config should be nil on error", tc.key, tc.val)
		}
		if err.Error() != tc.wantErr {
			t.Errorf("%s=%q: error = %q, want %q", tc.key, tc.val, err.Error(), tc.wantErr)
		}
	}
}

func TestAllowedOrigins_NilConfig(t *testing.T) {
	var cfg *Config
	if cfg.AllowedOrigins() != nil {
		t.Error("nil config should have no origins")
	}
	if cfg.IsProduction() {
		t.Error("nil config should not be production")
	}
}
