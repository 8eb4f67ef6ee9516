package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// IdentityService implements ports.IdentityProvider on top of the user and
// role repositories. Passwords are stored as bcrypt hashes.
type IdentityService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	cost      int
	dummyHash []byte
}

// NewIdentityService returns an IdentityService hashing with cost. A cost
// outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewIdentityService(users ports.UserRepository, roles ports.RoleRepository, cost int) (*IdentityService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the user does not exist so both failure paths
	// spend the same time in bcrypt.
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &IdentityService{users: users, roles: roles, cost: cost, dummyHash: dummy}, nil
}

func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

// VerifyPassword reports whether password matches the user's hash. A nil user
// always fails after a comparison against a dummy hash.
func (s *IdentityService) VerifyPassword(user *domain.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *IdentityService) RolesOf(_ context.Context, user *domain.User) ([]string, error) {
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return slices.Clone(user.Roles), nil
}

// Create hashes password and persists user together with user.Roles. Every
// role must already be seeded; nothing is written otherwise. Existing
// usernames yield domain.ErrUserExists.
func (s *IdentityService) Create(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	if user == nil || user.Username == "" || password == "" {
		return nil, domain.ErrInvalidRequest
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		if slices.Contains(roles, role) {
			continue
		}
		if err := s.checkRole(ctx, role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	now := time.Now().UTC()
	u := *user
	u.PasswordHash = string(hash)
	u.Roles = roles
	u.CreatedAt = now
	u.UpdatedAt = now

	created, err := s.users.Create(ctx, &u)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("identity: create user: %w", err)
	}
	return created, nil
}

// AssignRole grants a seeded role to user.
func (s *IdentityService) AssignRole(ctx context.Context, user *domain.User, role string) error {
	if err := s.checkRole(ctx, role); err != nil {
		return err
	}
	if err := s.users.AddRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("identity: assign role: %w", err)
	}
	if !user.HasRole(role) {
		user.Roles = append(user.Roles, role)
	}
	return nil
}

func (s *IdentityService) checkRole(ctx context.Context, role string) error {
	ok, err := s.roles.Exists(ctx, role)
	if err != nil {
		return fmt.Errorf("identity: lookup role: %w", err)
	}
	if !ok {
		return fmt.Errorf("identity: %w: %s", domain.ErrRoleNotFound, role)
	}
	return nil
}
