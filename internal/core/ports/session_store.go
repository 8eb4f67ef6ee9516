package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// SessionStore persists one refresh-token session per user, keyed by user id.
type SessionStore interface {
	// Create inserts an empty session row. Returns nil if one already exists.
	Create(ctx context.Context, s *domain.Session) error
	// Get returns domain.ErrSessionNotFound when the user has no row.
	Get(ctx context.Context, userID string) (*domain.Session, error)
	// SetRefresh upserts the refresh token and its expiry.
	SetRefresh(ctx context.Context, userID, token string, expiry time.Time) error
	// ClearRefresh nulls both refresh fields. Idempotent.
	ClearRefresh(ctx context.Context, userID string) error
	// RotateRefresh replaces presented with next only if presented is still the
	// stored token and has not expired at now. Otherwise it returns
	// domain.ErrSessionConflict and writes nothing.
	RotateRefresh(ctx context.Context, userID, presented, next string, expiry, now time.Time) error
}
