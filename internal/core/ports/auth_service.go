package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username string
	Password string
	Role     string
	Email    string
	Phone    string
	FullName string
	Dob      *time.Time
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	Tokens  domain.TokenPair
	Profile domain.Profile
}

// AuthService is the token lifecycle surface consumed by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error)
	Revoke(ctx context.Context, actor, username string) error
}
