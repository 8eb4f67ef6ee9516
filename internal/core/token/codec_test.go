package token

import (
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	return Config{
		Secret:           []byte(testSecret),
		Issuer:           "auth-service",
		Audience:         "auth-clients",
		AccessTTL:        30 * time.Second,
		ValidateIssuer:   true,
		ValidateAudience: true,
	}
}

func newTestCodec(t *testing.T, clock *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec(testConfig(), clock.Now)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodec_RejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"short secret":  func(c *Config) { c.Secret = []byte("short") },
		"no issuer":     func(c *Config) { c.Issuer = "" },
		"no audience":   func(c *Config) { c.Audience = "" },
		"zero ttl":      func(c *Config) { c.AccessTTL = 0 },
		"negative skew": func(c *Config) { c.Leeway = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			if _, err := NewCodec(cfg, nil); !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestCodec_Issue_Claims(t *testing.T) {
	clock := newFakeClock()
	c := newTestCodec(t, clock)

	signed, claims, err := c.Issue("alice", []string{"Customer", "Office"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if signed == "" || !LooksLikeJWT(signed) {
		t.Fatalf("unexpected token %q", signed)
	}
	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
	if !claims.ExpiresAt.Time.Equal(clock.Now().Add(30 * time.Second)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt.Time)
	}

	// The role claim is serialised as a JSON array.
	parts := strings.Split(signed, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !strings.Contains(string(payload), `"role":["Customer","Office"]`) {
		t.Fatalf("role claim not a flat list: %s", payload)
	}
	if !strings.Contains(string(payload), `"sub":"alice"`) {
		t.Fatalf("sub claim missing: %s", payload)
	}
}

func TestCodec_Issue_UniqueJTI(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	_, a, _ := c.Issue("alice", nil)
	_, b, _ := c.Issue("alice", nil)
	if a.ID == b.ID {
		t.Fatalf("expected distinct jti, got %s twice", a.ID)
	}
}

func TestCodec_RecoverExpiredPrincipal_AfterExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newTestCodec(t, clock)

	signed, _, err := c.Issue("alice", []string{"Office", "Customer"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(24 * time.Hour)

	if _, err := c.Parse(signed); !errors.Is(err, domain.ErrInvalidToken) || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("strict parse should reject expired token, got %v", err)
	}

	claims, err := c.RecoverExpiredPrincipal(signed)
	if err != nil {
		t.Fatalf("RecoverExpiredPrincipal: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	got := []string(claims.Roles)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "Customer" || got[1] != "Office" {
		t.Fatalf("unexpected roles %v", got)
	}
}

func TestCodec_RecoverExpiredPrincipal_TamperedSignature(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	signed, _, _ := c.Issue("alice", []string{"Customer"})

	parts := strings.Split(signed, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	if _, err := c.RecoverExpiredPrincipal(strings.Join(parts, ".")); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_RecoverExpiredPrincipal_TamperedPayload(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	signed, _, _ := c.Issue("alice", []string{"Customer"})

	parts := strings.Split(signed, ".")
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	forged := strings.Replace(string(payload), `"sub":"alice"`, `"sub":"mallory"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	if _, err := c.RecoverExpiredPrincipal(strings.Join(parts, ".")); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_RecoverExpiredPrincipal_WrongKey(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	other := testConfig()
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	foreign, err := NewCodec(other, nil)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	signed, _, _ := foreign.Issue("alice", nil)

	if _, err := c.RecoverExpiredPrincipal(signed); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_RecoverExpiredPrincipal_RejectsOtherAlgorithms(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	claims := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  "alice",
		Issuer:   "auth-service",
		Audience: jwt.ClaimStrings{"auth-clients"},
	}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := c.RecoverExpiredPrincipal(hs512); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("HS512: expected ErrInvalidToken, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.RecoverExpiredPrincipal(none); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("none: expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_RecoverExpiredPrincipal_IssuerAudience(t *testing.T) {
	clock := newFakeClock()
	c := newTestCodec(t, clock)

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	foreignIss, _ := NewCodec(otherIssuer, clock.Now)
	tokIss, _, _ := foreignIss.Issue("alice", nil)
	if _, err := c.RecoverExpiredPrincipal(tokIss); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("issuer mismatch: expected ErrInvalidToken, got %v", err)
	}

	otherAud := testConfig()
	otherAud.Audience = "other-clients"
	foreignAud, _ := NewCodec(otherAud, clock.Now)
	tokAud, _, _ := foreignAud.Issue("alice", nil)
	if _, err := c.RecoverExpiredPrincipal(tokAud); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("audience mismatch: expected ErrInvalidToken, got %v", err)
	}

	// With validation disabled the same tokens are accepted.
	lax := testConfig()
	lax.ValidateIssuer = false
	lax.ValidateAudience = false
	laxCodec, _ := NewCodec(lax, clock.Now)
	if _, err := laxCodec.RecoverExpiredPrincipal(tokIss); err != nil {
		t.Fatalf("lax issuer: %v", err)
	}
	if _, err := laxCodec.RecoverExpiredPrincipal(tokAud); err != nil {
		t.Fatalf("lax audience: %v", err)
	}
}

func TestCodec_RecoverExpiredPrincipal_Garbage(t *testing.T) {
	c := newTestCodec(t, newFakeClock())
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := c.RecoverExpiredPrincipal(raw); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestCodec_Parse_Valid(t *testing.T) {
	clock := newFakeClock()
	c := newTestCodec(t, clock)
	signed, _, _ := c.Issue("bob", []string{"Admin"})

	clock.Advance(10 * time.Second)
	claims, err := c.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "bob" || len(claims.Roles) != 1 || claims.Roles[0] != "Admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	cases := map[string]bool{
		"a.b.c":   true,
		"a.b":     false,
		"a..c":    false,
		"":        false,
		"a.b.c.d": false,
	}
	for in, want := range cases {
		if got := LooksLikeJWT(in); got != want {
			t.Errorf("LooksLikeJWT(%q) = %v, want %v", in, got, want)
		}
	}
}
