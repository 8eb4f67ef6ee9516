package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RefreshTokenSize is the number of random bytes in a refresh token.
const RefreshTokenSize = 64

// RefreshGenerator produces opaque refresh tokens.
type RefreshGenerator func() (string, error)

// GenerateRefreshToken returns RefreshTokenSize bytes from crypto/rand,
// base64 encoded.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, RefreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// IsRefreshTokenFormat reports whether raw decodes to a refresh token of the
// expected size.
func IsRefreshTokenFormat(raw string) bool {
	b, err := base64.StdEncoding.DecodeString(raw)
	return err == nil && len(b) == RefreshTokenSize
}
