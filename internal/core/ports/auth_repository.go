package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository defines persistence for identities.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// AddRole adds role to the user's role set; adding an existing role is a no-op.
	AddRole(ctx context.Context, userID, role string) error
}

// RoleRepository stores the set of assignable role names.
type RoleRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	// EnsureRoles creates any of names that do not exist yet. Idempotent.
	EnsureRoles(ctx context.Context, names ...string) error
}
