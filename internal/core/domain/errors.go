package domain

import "errors"

// Token lifecycle failures. The API boundary decides status codes.
var (
	ErrUnauthorized    = errors.New("invalid credentials")
	ErrInvalidRequest  = errors.New("invalid client request")
	ErrInvalidToken    = errors.New("invalid access token or refresh token")
	ErrInvalidUser     = errors.New("invalid user name")
	ErrConfiguration   = errors.New("invalid configuration")
	ErrTooManyAttempts = errors.New("too many failed login attempts")
	ErrForbidden       = errors.New("access forbidden")
)

// Identity and storage failures.
var (
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionConflict = errors.New("session changed concurrently")
)
