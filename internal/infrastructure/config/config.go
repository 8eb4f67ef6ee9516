// Package config loads service settings from the environment.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// MinSecretLength is the shortest HS256 signing secret accepted, in bytes.
const MinSecretLength = 32

// Session store backends.
const (
	BackendMongo = "mongo"
	BackendRedis = "redis"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	JWT      JWTConfig
	Session  SessionConfig
	Identity IdentityConfig
	Login    LoginConfig
	Audit    AuditConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

// JWTConfig holds the signing and validation parameters for access tokens.
type JWTConfig struct {
	Secret           string        `env:"JWT_SECRET"`
	Issuer           string        `env:"JWT_ISSUER"`
	Audience         string        `env:"JWT_AUDIENCE"`
	ValidateIssuer   bool          `env:"JWT_VALIDATE_ISSUER,   default=true"`
	ValidateAudience bool          `env:"JWT_VALIDATE_AUDIENCE, default=true"`
	Leeway           time.Duration `env:"JWT_LEEWAY,            default=0s"`
	AccessTTL        time.Duration `env:"ACCESS_TOKEN_TTL,      default=5m"`
}

type SessionConfig struct {
	Backend    string        `env:"SESSION_BACKEND,   default=mongo"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=24h"`
}

type IdentityConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

// LoginConfig controls the failed-login throttle. MaxFailures of 0 disables it.
type LoginConfig struct {
	MaxFailures   int           `env:"LOGIN_MAX_FAILURES,   default=5"`
	LockoutWindow time.Duration `env:"LOGIN_LOCKOUT_WINDOW, default=15m"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from the process environment and validates it.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be expressed as struct tags.
// Every returned error wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	switch {
	case len(c.JWT.Secret) < MinSecretLength:
		return configErr("JWT_SECRET must be at least %d bytes", MinSecretLength)
	case strings.TrimSpace(c.JWT.Issuer) == "":
		return configErr("JWT_ISSUER is required")
	case strings.TrimSpace(c.JWT.Audience) == "":
		return configErr("JWT_AUDIENCE is required")
	case c.JWT.AccessTTL <= 0:
		return configErr("ACCESS_TOKEN_TTL must be positive")
	case c.JWT.Leeway < 0:
		return configErr("JWT_LEEWAY must not be negative")
	case c.Session.RefreshTTL <= 0:
		return configErr("REFRESH_TOKEN_TTL must be positive")
	case c.Session.Backend != BackendMongo && c.Session.Backend != BackendRedis:
		return configErr("SESSION_BACKEND must be %q or %q, got %q", BackendMongo, BackendRedis, c.Session.Backend)
	case c.Identity.BcryptCost < 4 || c.Identity.BcryptCost > 31:
		return configErr("BCRYPT_COST must be between 4 and 31")
	case c.Login.MaxFailures < 0:
		return configErr("LOGIN_MAX_FAILURES must not be negative")
	case c.Login.MaxFailures > 0 && c.Login.LockoutWindow <= 0:
		return configErr("LOGIN_LOCKOUT_WINDOW must be positive when the throttle is enabled")
	case c.Audit.Workers <= 0:
		return configErr("AUDIT_WORKERS must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}
