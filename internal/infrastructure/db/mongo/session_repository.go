package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// SessionRepository implements ports.SessionStore on the user_sessions collection.
// Each document carries a version counter that every refresh write increments.
type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) ports.SessionStore {
	return &SessionRepository{coll: db.Collection(sessionsCollection)}
}

type mongoSession struct {
	UserID        string     `bson:"user_id"`
	RefreshToken  *string    `bson:"refresh_token"`
	RefreshExpiry *time.Time `bson:"refresh_expiry"`
	JoinDate      time.Time  `bson:"join_date"`
	Version       int64      `bson:"version"`
}

func (m mongoSession) toDomain() *domain.Session {
	s := &domain.Session{
		UserID:   m.UserID,
		JoinDate: m.JoinDate.UTC(),
		Version:  m.Version,
	}
	if m.RefreshToken != nil && m.RefreshExpiry != nil {
		s.SetRefresh(*m.RefreshToken, m.RefreshExpiry.UTC())
	}
	return s
}

// Create inserts an empty session row. An existing row is left as is.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	joined := s.JoinDate
	if joined.IsZero() {
		joined = time.Now()
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": s.UserID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":        s.UserID,
			"refresh_token":  nil,
			"refresh_expiry": nil,
			"join_date":      joined.UTC(),
			"version":        int64(0),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, userID string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return ms.toDomain(), nil
}

// SetRefresh upserts so that a user whose session row was never created can
// still log in.
func (r *SessionRepository) SetRefresh(ctx context.Context, userID, token string, expiry time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"refresh_token":  token,
				"refresh_expiry": expiry.UTC(),
			},
			"$inc":         bson.M{"version": int64(1)},
			"$setOnInsert": bson.M{"join_date": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set refresh: %w", err)
	}
	return nil
}

func (r *SessionRepository) ClearRefresh(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{"refresh_token": nil, "refresh_expiry": nil},
			"$inc": bson.M{"version": int64(1)},
		},
	)
	if err != nil {
		return fmt.Errorf("clear refresh: %w", err)
	}
	return nil
}

// RotateRefresh is a single conditional update: the filter only matches while
// presented is the stored, unexpired token, so concurrent rotations of the
// same token have exactly one winner.
func (r *SessionRepository) RotateRefresh(ctx context.Context, userID, presented, next string, expiry, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, rotateFilter(userID, presented, now), rotateUpdate(next, expiry))
	if err != nil {
		return fmt.Errorf("rotate refresh: %w", err)
	}
	return rotateOutcome(res)
}

// rotateFilter matches the session only while presented is its current,
// unexpired refresh token.
func rotateFilter(userID, presented string, now time.Time) bson.M {
	return bson.M{
		"user_id":        userID,
		"refresh_token":  presented,
		"refresh_expiry": bson.M{"$gt": now.UTC()},
	}
}

func rotateUpdate(next string, expiry time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"refresh_token":  next,
			"refresh_expiry": expiry.UTC(),
		},
		"$inc": bson.M{"version": int64(1)},
	}
}

// rotateOutcome maps an update that matched nothing to a lost race.
func rotateOutcome(res *mongo.UpdateResult) error {
	if res == nil || res.MatchedCount == 0 {
		return domain.ErrSessionConflict
	}
	return nil
}
