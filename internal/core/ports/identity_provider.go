package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// IdentityProvider is the identity collaborator consumed by the token lifecycle.
type IdentityProvider interface {
	// FindByUsername returns domain.ErrUserNotFound for unknown users.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	VerifyPassword(user *domain.User, password string) bool
	RolesOf(ctx context.Context, user *domain.User) ([]string, error)
	Create(ctx context.Context, user *domain.User, password string) (*domain.User, error)
	AssignRole(ctx context.Context, user *domain.User, role string) error
}

// LoginThrottle tracks failed logins per username.
type LoginThrottle interface {
	Locked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// AuditSink accepts lifecycle events. Implementations must not block the caller.
type AuditSink interface {
	Publish(event domain.AuthEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
