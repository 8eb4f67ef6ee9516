package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] counter key
// ARGV[1] window ms
const recordFailureScript = `
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// LoginThrottle counts failed logins per username in a fixed window.
// Key format: login_failures:<username>
//
// A maxFailures of 0 disables the throttle entirely.
type LoginThrottle struct {
	client      redis.UniversalClient
	maxFailures int64
	window      time.Duration
}

// NewLoginThrottle creates a LoginThrottle wrapping the given Redis client.
func NewLoginThrottle(client redis.UniversalClient, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Locked reports whether username has reached the failure limit in the current window.
func (t *LoginThrottle) Locked(ctx context.Context, username string) (bool, error) {
	if t.maxFailures <= 0 {
		return false, nil
	}
	n, err := t.client.Get(ctx, t.key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the counter. The window starts at the first
// failure; a counter found without a TTL gets one, so a key can never lock a
// username indefinitely.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if t.maxFailures <= 0 {
		return nil
	}
	err := recordFailureLua.Run(ctx, t.client, []string{t.key(username)}, t.window.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if t.maxFailures <= 0 {
		return nil
	}
	return t.client.Del(ctx, t.key(username)).Err()
}

func (t *LoginThrottle) key(username string) string {
	return "login_failures:" + username
}
