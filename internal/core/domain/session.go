package domain

import "time"

// Session ties a user to their current refresh token. One per user.
//
// RefreshToken is nil iff RefreshExpiry is nil.
type Session struct {
	UserID        string     `json:"user_id"`
	RefreshToken  *string    `json:"-"`
	RefreshExpiry *time.Time `json:"refresh_expiry,omitempty"`
	JoinDate      time.Time  `json:"join_date"`
	Version       int64      `json:"version"`
}

// Active reports whether the session holds a refresh token that is still live at now.
func (s *Session) Active(now time.Time) bool {
	if s == nil || s.RefreshToken == nil || s.RefreshExpiry == nil {
		return false
	}
	return now.Before(*s.RefreshExpiry)
}

// SetRefresh populates both refresh fields.
func (s *Session) SetRefresh(token string, expiry time.Time) {
	s.RefreshToken = &token
	s.RefreshExpiry = &expiry
}

// ClearRefresh nulls both refresh fields.
func (s *Session) ClearRefresh() {
	s.RefreshToken = nil
	s.RefreshExpiry = nil
}

// TokenPair is returned once per issuance or rotation.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expiration"`
}
