// Package token builds and validates the credentials handed to clients: the
// signed HS256 access token and the opaque refresh token.
package token

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// minSecretLen is the shortest HS256 key accepted (256 bits).
const minSecretLen = 32

// Config carries the signing key and token parameters.
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	// Leeway applies to strict validation only.
	Leeway time.Duration
	// ValidateIssuer and ValidateAudience also apply when recovering a principal
	// from an expired token.
	ValidateIssuer   bool
	ValidateAudience bool
}

// AccessClaims are the claims carried by an access token. Roles is a flat list
// with one entry per role.
type AccessClaims struct {
	Roles jwt.ClaimStrings `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and parses access tokens.
type Codec struct {
	cfg Config
	now func() time.Time
}

// NewCodec validates cfg and returns a Codec. A nil now uses time.Now.
func NewCodec(cfg Config, now func() time.Time) (*Codec, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("%w: signing secret must be at least %d bytes", domain.ErrConfiguration, minSecretLen)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", domain.ErrConfiguration)
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access token ttl must be positive", domain.ErrConfiguration)
	}
	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("%w: leeway must not be negative", domain.ErrConfiguration)
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{cfg: cfg, now: now}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.cfg.AccessTTL
}

// Issue signs a new access token for username carrying roles.
func (c *Codec) Issue(username string, roles []string) (string, *AccessClaims, error) {
	if username == "" {
		return "", nil, errors.New("issue access token: empty subject")
	}

	now := c.now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTTL)),
		},
	}
	if len(roles) > 0 {
		claims.Roles = slices.Clone(roles)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	return signed, claims, nil
}

// RecoverExpiredPrincipal verifies the signature and algorithm of raw without
// checking its lifetime, so a token whose expiry has passed is still accepted.
// Every failure wraps domain.ErrInvalidToken.
func (c *Codec) RecoverExpiredPrincipal(raw string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &AccessClaims{}
	tkn, err := parser.ParseWithClaims(raw, claims, c.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	if c.cfg.ValidateIssuer && claims.Issuer != c.cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", domain.ErrInvalidToken)
	}
	if c.cfg.ValidateAudience && !slices.Contains(claims.Audience, c.cfg.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", domain.ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims, nil
}

// Parse fully validates raw, including expiry. Used to authenticate callers.
func (c *Codec) Parse(raw string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(c.cfg.Leeway))
	}
	if c.cfg.ValidateIssuer {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}
	if c.cfg.ValidateAudience {
		opts = append(opts, jwt.WithAudience(c.cfg.Audience))
	}

	claims := &AccessClaims{}
	tkn, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, c.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return c.cfg.Secret, nil
}

// LooksLikeJWT reports whether raw has the three non-empty dot-separated
// segments of a compact JWS.
func LooksLikeJWT(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
