package domain

import "time"

// AuthEventType names a token lifecycle event recorded in the audit trail.
type AuthEventType string

const (
	EventUserRegistered  AuthEventType = "user_registered"
	EventLoginSucceeded  AuthEventType = "login_succeeded"
	EventLoginFailed     AuthEventType = "login_failed"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventRefreshRejected AuthEventType = "refresh_rejected"
	EventTokenRevoked    AuthEventType = "token_revoked"
)

// AuthEvent is a single audit record. Username may be empty when the
// principal could not be recovered.
type AuthEvent struct {
	Type      AuthEventType
	Username  string
	UserID    string
	TokenID   string // jti of the access token involved, if any
	Reason    string
	Actor     string // authenticated caller, for revocations
	Timestamp time.Time
}
