package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestMongoSession_ToDomain(t *testing.T) {
	tok := "refresh"
	exp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	full := mongoSession{UserID: "u-1", RefreshToken: &tok, RefreshExpiry: &exp, Version: 3}.toDomain()
	if full.RefreshToken == nil || *full.RefreshToken != tok || !full.RefreshExpiry.Equal(exp) {
		t.Fatalf("refresh fields not mapped: %+v", full)
	}
	if full.Version != 3 {
		t.Fatalf("expected version 3, got %d", full.Version)
	}

	// A token without an expiry is treated as no token at all.
	half := mongoSession{UserID: "u-1", RefreshToken: &tok}.toDomain()
	if half.RefreshToken != nil || half.RefreshExpiry != nil {
		t.Fatalf("half-populated refresh fields must map to none: %+v", half)
	}
}

func TestMongoUser_ToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	u := mongoUser{ID: oid, Username: "alice"}.toDomain()
	if u.ID != oid.Hex() {
		t.Fatalf("expected hex id %s, got %s", oid.Hex(), u.ID)
	}
	if u.Roles == nil {
		t.Fatalf("roles should never be nil")
	}
}

func TestRotateFilter_MatchesOnlyCurrentUnexpiredToken(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, loc)

	f := rotateFilter("u-1", "presented", now)
	if len(f) != 3 {
		t.Fatalf("unexpected filter keys: %v", f)
	}
	if f["user_id"] != "u-1" || f["refresh_token"] != "presented" {
		t.Fatalf("filter must pin user and presented token: %v", f)
	}
	expiry, ok := f["refresh_expiry"].(bson.M)
	if !ok {
		t.Fatalf("refresh_expiry must be an operator document: %v", f["refresh_expiry"])
	}
	gt, ok := expiry["$gt"].(time.Time)
	if !ok || !gt.Equal(now) || gt.Location() != time.UTC {
		t.Fatalf("expected $gt now in UTC, got %v", expiry)
	}
}

func TestRotateUpdate_BumpsVersion(t *testing.T) {
	exp := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	u := rotateUpdate("next", exp)
	set, _ := u["$set"].(bson.M)
	got, _ := set["refresh_expiry"].(time.Time)
	if set["refresh_token"] != "next" || !got.Equal(exp) {
		t.Fatalf("unexpected $set: %v", set)
	}
	inc, _ := u["$inc"].(bson.M)
	if inc["version"] != int64(1) {
		t.Fatalf("expected version increment, got %v", inc)
	}
}

func TestRotateOutcome(t *testing.T) {
	if err := rotateOutcome(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}); err != nil {
		t.Fatalf("matched update must succeed, got %v", err)
	}
	if err := rotateOutcome(&mongo.UpdateResult{}); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict, got %v", err)
	}
	if err := rotateOutcome(nil); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict for nil result, got %v", err)
	}
}
