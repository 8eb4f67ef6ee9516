package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_SECRET":   "0123456789abcdef0123456789abcdef",
		"JWT_ISSUER":   "auth-service",
		"JWT_AUDIENCE": "auth-clients",
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute {
		t.Fatalf("expected access ttl 5m, got %s", cfg.JWT.AccessTTL)
	}
	if cfg.Session.RefreshTTL != 24*time.Hour {
		t.Fatalf("expected refresh ttl 24h, got %s", cfg.Session.RefreshTTL)
	}
	if !cfg.JWT.ValidateIssuer || !cfg.JWT.ValidateAudience {
		t.Fatalf("expected issuer and audience validation on by default")
	}
	if cfg.Session.Backend != BackendMongo {
		t.Fatalf("expected mongo backend, got %q", cfg.Session.Backend)
	}
	if cfg.Login.MaxFailures != 5 || cfg.Login.LockoutWindow != 15*time.Minute {
		t.Fatalf("unexpected throttle defaults: %+v", cfg.Login)
	}
	if cfg.Audit.Workers != 4 {
		t.Fatalf("expected 4 audit workers, got %d", cfg.Audit.Workers)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	env := baseEnv()
	env["ACCESS_TOKEN_TTL"] = "30s"
	env["REFRESH_TOKEN_TTL"] = "1h"
	env["SESSION_BACKEND"] = " Redis "
	env["JWT_VALIDATE_AUDIENCE"] = "false"
	env["LOGIN_MAX_FAILURES"] = "0"
	env["LOGIN_LOCKOUT_WINDOW"] = "0s"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWT.AccessTTL != 30*time.Second || cfg.Session.RefreshTTL != time.Hour {
		t.Fatalf("ttl overrides not applied: %+v %+v", cfg.JWT, cfg.Session)
	}
	if cfg.Session.Backend != BackendRedis {
		t.Fatalf("expected normalised redis backend, got %q", cfg.Session.Backend)
	}
	if cfg.JWT.ValidateAudience {
		t.Fatalf("expected audience validation disabled")
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short secret", "JWT_SECRET", "too-short"},
		{"missing issuer", "JWT_ISSUER", ""},
		{"missing audience", "JWT_AUDIENCE", "  "},
		{"zero access ttl", "ACCESS_TOKEN_TTL", "0s"},
		{"negative leeway", "JWT_LEEWAY", "-1s"},
		{"zero refresh ttl", "REFRESH_TOKEN_TTL", "0s"},
		{"unknown backend", "SESSION_BACKEND", "memcached"},
		{"negative failures", "LOGIN_MAX_FAILURES", "-1"},
		{"zero window", "LOGIN_LOCKOUT_WINDOW", "0s"},
		{"zero workers", "AUDIT_WORKERS", "0"},
		{"bcrypt cost too low", "BCRYPT_COST", "3"},
		{"bad duration", "ACCESS_TOKEN_TTL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.val
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	if !(&Config{Env: "development"}).IsDevelopment() {
		t.Fatalf("development should be a local environment")
	}
	if (&Config{Env: "production"}).IsDevelopment() {
		t.Fatalf("production should not be a local environment")
	}
}
