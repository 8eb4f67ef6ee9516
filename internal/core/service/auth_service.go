package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/token"
	"github.com/99minutos/auth-service/internal/infrastructure/metrics"
)

const defaultRefreshTTL = 24 * time.Hour

// AuthService implements registration and the token lifecycle: login,
// refresh with rotation, and revocation.
type AuthService struct {
	identity   ports.IdentityProvider
	sessions   ports.SessionStore
	codec      *token.Codec
	refreshTTL time.Duration
	log        zerolog.Logger

	newRefresh token.RefreshGenerator
	throttle   ports.LoginThrottle
	audit      ports.AuditSink
	now        func() time.Time
}

// Option configures optional AuthService collaborators.
type Option func(*AuthService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithRefreshGenerator overrides token.GenerateRefreshToken.
func WithRefreshGenerator(gen token.RefreshGenerator) Option {
	return func(s *AuthService) { s.newRefresh = gen }
}

// WithLoginThrottle enables lockout after repeated failed logins.
func WithLoginThrottle(t ports.LoginThrottle) Option {
	return func(s *AuthService) { s.throttle = t }
}

// WithAuditSink publishes lifecycle events to sink.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(s *AuthService) { s.audit = sink }
}

func NewAuthService(
	identity ports.IdentityProvider,
	sessions ports.SessionStore,
	codec *token.Codec,
	refreshTTL time.Duration,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	s := &AuthService{
		identity:   identity,
		sessions:   sessions,
		codec:      codec,
		refreshTTL: refreshTTL,
		log:        log,
		newRefresh: token.GenerateRefreshToken,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user holding role and its empty session row.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" || !slices.Contains(domain.DefaultRoles, in.Role) {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.identity.Create(ctx, &domain.User{
		Username: in.Username,
		Email:    in.Email,
		Phone:    in.Phone,
		FullName: in.FullName,
		Dob:      in.Dob,
		Roles:    []string{in.Role},
	}, in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	if err := s.sessions.Create(ctx, &domain.Session{UserID: user.ID, JoinDate: s.now().UTC()}); err != nil {
		// Login upserts the row, so a missing session is recoverable.
		s.log.Warn().Err(err).Str("username", user.Username).Msg("failed to create session row")
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.publish(domain.AuthEvent{Type: domain.EventUserRegistered, Username: user.Username, UserID: user.ID})
	s.log.Info().Str("username", user.Username).Str("role", in.Role).Msg("user registered")

	return user, nil
}

// Login authenticates the credentials and issues a token pair. Unknown users
// and wrong passwords both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	started := time.Now()
	defer observe("login", started)

	if username == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_request").Inc()
		return nil, domain.ErrInvalidRequest
	}

	if s.throttle != nil {
		locked, err := s.throttle.Locked(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("login throttle check failed, continuing")
		} else if locked {
			s.loginFailed(ctx, username, "", "locked")
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.identity.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("login: %w", err)
		}
		s.identity.VerifyPassword(nil, password)
		s.loginFailed(ctx, username, "", "unknown_user")
		return nil, domain.ErrUnauthorized
	}

	if !s.identity.VerifyPassword(user, password) {
		s.loginFailed(ctx, username, user.ID, "bad_password")
		return nil, domain.ErrUnauthorized
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login throttle")
		}
	}

	pair, claims, err := s.issuePair(ctx, user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.sessions.SetRefresh(ctx, user.ID, pair.RefreshToken, pair.ExpiresAt); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: store refresh token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	s.publish(domain.AuthEvent{
		Type:     domain.EventLoginSucceeded,
		Username: user.Username,
		UserID:   user.ID,
		TokenID:  claims.ID,
	})
	s.log.Info().Str("username", user.Username).Str("jti", claims.ID).Msg("login succeeded")

	return &ports.LoginResult{Tokens: pair, Profile: s.profile(ctx, user)}, nil
}

// Refresh exchanges an access token, expired or not, and the refresh token
// bound to its subject for a new pair. The presented refresh token is
// consumed: it is replaced atomically and cannot be used again.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*ports.LoginResult, error) {
	started := time.Now()
	defer observe("refresh", started)

	if accessToken == "" || refreshToken == "" ||
		!token.LooksLikeJWT(accessToken) || !token.IsRefreshTokenFormat(refreshToken) {
		metrics.RefreshesTotal.WithLabelValues("invalid_request").Inc()
		return nil, domain.ErrInvalidRequest
	}

	claims, err := s.codec.RecoverExpiredPrincipal(accessToken)
	if err != nil {
		s.refreshRejected("", "", "invalid_access_token")
		return nil, fmt.Errorf("refresh: %w", err)
	}

	user, err := s.identity.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.refreshRejected(claims.Subject, "", "unknown_subject")
			return nil, domain.ErrInvalidToken
		}
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	sess, err := s.sessions.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.refreshRejected(user.Username, user.ID, "no_session")
			return nil, domain.ErrInvalidToken
		}
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	now := s.now()
	if !sess.Active(now) {
		s.refreshRejected(user.Username, user.ID, "refresh_expired")
		return nil, domain.ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(*sess.RefreshToken), []byte(refreshToken)) != 1 {
		s.refreshRejected(user.Username, user.ID, "refresh_mismatch")
		return nil, domain.ErrInvalidToken
	}

	pair, newClaims, err := s.issuePair(ctx, user)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if err := s.sessions.RotateRefresh(ctx, user.ID, refreshToken, pair.RefreshToken, pair.ExpiresAt, now); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			s.refreshRejected(user.Username, user.ID, "rotation_conflict")
			return nil, domain.ErrInvalidToken
		}
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: rotate: %w", err)
	}

	metrics.RefreshesTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	s.publish(domain.AuthEvent{
		Type:     domain.EventTokenRefreshed,
		Username: user.Username,
		UserID:   user.ID,
		TokenID:  newClaims.ID,
	})
	s.log.Info().
		Str("username", user.Username).
		Str("old_jti", claims.ID).
		Str("jti", newClaims.ID).
		Msg("token refreshed")

	return &ports.LoginResult{Tokens: pair, Profile: s.profile(ctx, user)}, nil
}

// Revoke clears the refresh state of username. Revoking an already cleared
// session succeeds.
func (s *AuthService) Revoke(ctx context.Context, actor, username string) error {
	if username == "" {
		metrics.RevocationsTotal.WithLabelValues("invalid_user").Inc()
		return domain.ErrInvalidUser
	}

	user, err := s.identity.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.RevocationsTotal.WithLabelValues("invalid_user").Inc()
			return domain.ErrInvalidUser
		}
		metrics.RevocationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("revoke: %w", err)
	}

	if err := s.sessions.ClearRefresh(ctx, user.ID); err != nil {
		metrics.RevocationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("revoke: %w", err)
	}

	metrics.RevocationsTotal.WithLabelValues("success").Inc()
	s.publish(domain.AuthEvent{
		Type:     domain.EventTokenRevoked,
		Username: user.Username,
		UserID:   user.ID,
		Actor:    actor,
	})
	s.log.Info().Str("username", user.Username).Str("actor", actor).Msg("refresh token revoked")
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (domain.TokenPair, *token.AccessClaims, error) {
	roles, err := s.identity.RolesOf(ctx, user)
	if err != nil {
		return domain.TokenPair{}, nil, fmt.Errorf("roles: %w", err)
	}

	access, claims, err := s.codec.Issue(user.Username, roles)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}

	refresh, err := s.newRefresh()
	if err != nil {
		return domain.TokenPair{}, nil, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.refreshTTL),
	}, claims, nil
}

// profile is best effort: a failed session read only drops the join date.
func (s *AuthService) profile(ctx context.Context, user *domain.User) domain.Profile {
	sess, err := s.sessions.Get(ctx, user.ID)
	if err != nil {
		s.log.Debug().Err(err).Str("username", user.Username).Msg("session unavailable for profile")
		sess = nil
	}
	return domain.NewProfile(user, sess)
}

func (s *AuthService) loginFailed(ctx context.Context, username, userID, reason string) {
	metrics.LoginsTotal.WithLabelValues(reason).Inc()
	if s.throttle != nil && reason != "locked" {
		if err := s.throttle.RecordFailure(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
		}
	}
	s.publish(domain.AuthEvent{Type: domain.EventLoginFailed, Username: username, UserID: userID, Reason: reason})
	s.log.Info().Str("username", username).Str("reason", reason).Msg("login failed")
}

func (s *AuthService) refreshRejected(username, userID, reason string) {
	metrics.RefreshesTotal.WithLabelValues(reason).Inc()
	s.publish(domain.AuthEvent{Type: domain.EventRefreshRejected, Username: username, UserID: userID, Reason: reason})
	s.log.Info().Str("username", username).Str("reason", reason).Msg("refresh rejected")
}

func (s *AuthService) publish(e domain.AuthEvent) {
	if s.audit == nil {
		return
	}
	e.Timestamp = s.now().UTC()
	s.audit.Publish(e)
}

func observe(op string, started time.Time) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "exists"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrRoleNotFound):
		return "role_not_found"
	default:
		return "error"
	}
}
