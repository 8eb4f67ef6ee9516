package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Session hash layout. Key format: session:<user_id>
//
//	user_id        owning user
//	refresh_token  current refresh token, absent when revoked
//	refresh_expiry unix milliseconds, absent when revoked
//	join_date      unix milliseconds
//	version        incremented on every refresh write
const (
	sessionKeyPrefix   = "session:"
	fieldUserID        = "user_id"
	fieldRefreshToken  = "refresh_token"
	fieldRefreshExpiry = "refresh_expiry"
	fieldJoinDate      = "join_date"
	fieldVersion       = "version"
)

// KEYS[1] session key
// ARGV[1] presented token, ARGV[2] next token, ARGV[3] next expiry ms, ARGV[4] now ms
const rotateRefreshScript = `
local current = redis.call('HGET', KEYS[1], 'refresh_token')
if not current or current ~= ARGV[1] then
  return 0
end
local expiry = tonumber(redis.call('HGET', KEYS[1], 'refresh_expiry'))
if not expiry or expiry <= tonumber(ARGV[4]) then
  return 0
end
redis.call('HSET', KEYS[1], 'refresh_token', ARGV[2], 'refresh_expiry', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'version', 1)
return 1
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// SessionStore implements ports.SessionStore as one Redis hash per user.
type SessionStore struct {
	client redis.UniversalClient
}

func NewSessionStore(client redis.UniversalClient) ports.SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) key(userID string) string {
	return sessionKeyPrefix + userID
}

// Create writes the base fields with HSETNX so an existing row is untouched.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	joined := sess.JoinDate
	if joined.IsZero() {
		joined = time.Now()
	}
	key := s.key(sess.UserID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, fieldUserID, sess.UserID)
		p.HSetNX(ctx, key, fieldJoinDate, joined.UnixMilli())
		p.HSetNX(ctx, key, fieldVersion, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return decodeSession(userID, fields)
}

func (s *SessionStore) SetRefresh(ctx context.Context, userID, token string, expiry time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key := s.key(userID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldUserID, userID,
			fieldRefreshToken, token,
			fieldRefreshExpiry, expiry.UnixMilli(),
		)
		p.HSetNX(ctx, key, fieldJoinDate, time.Now().UnixMilli())
		p.HIncrBy(ctx, key, fieldVersion, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set refresh: %w", err)
	}
	return nil
}

// ClearRefresh removes both refresh fields. A missing row is not an error.
func (s *SessionStore) ClearRefresh(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key := s.key(userID)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("clear refresh: %w", err)
	}
	if n == 0 {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, key, fieldRefreshToken, fieldRefreshExpiry)
		p.HIncrBy(ctx, key, fieldVersion, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear refresh: %w", err)
	}
	return nil
}

func (s *SessionStore) RotateRefresh(ctx context.Context, userID, presented, next string, expiry, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := rotateRefreshLua.Run(ctx, s.client,
		[]string{s.key(userID)},
		presented, next, expiry.UnixMilli(), now.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("rotate refresh: %w", err)
	}
	if res != 1 {
		return domain.ErrSessionConflict
	}
	return nil
}

func decodeSession(userID string, fields map[string]string) (*domain.Session, error) {
	sess := &domain.Session{UserID: userID}

	if v, ok := fields[fieldJoinDate]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session join_date: %w", err)
		}
		sess.JoinDate = time.UnixMilli(ms).UTC()
	}
	if v, ok := fields[fieldVersion]; ok {
		ver, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session version: %w", err)
		}
		sess.Version = ver
	}

	token, hasToken := fields[fieldRefreshToken]
	rawExpiry, hasExpiry := fields[fieldRefreshExpiry]
	if hasToken != hasExpiry {
		return nil, errors.New("decode session: refresh token and expiry out of sync")
	}
	if hasToken {
		ms, err := strconv.ParseInt(rawExpiry, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session refresh_expiry: %w", err)
		}
		sess.SetRefresh(token, time.UnixMilli(ms).UTC())
	}
	return sess, nil
}
