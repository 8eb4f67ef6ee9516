package domain

import (
	"testing"
	"time"
)

func TestSession_Active(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var nilSession *Session
	if nilSession.Active(now) {
		t.Fatalf("nil session must not be active")
	}

	s := &Session{UserID: "u-1"}
	if s.Active(now) {
		t.Fatalf("session without refresh token must not be active")
	}

	s.SetRefresh("tok", now.Add(time.Minute))
	if !s.Active(now) {
		t.Fatalf("expected active before expiry")
	}
	if s.Active(now.Add(time.Minute)) {
		t.Fatalf("expected inactive exactly at expiry")
	}

	s.ClearRefresh()
	if s.RefreshToken != nil || s.RefreshExpiry != nil {
		t.Fatalf("ClearRefresh must null both fields")
	}
	if s.Active(now) {
		t.Fatalf("cleared session must not be active")
	}
}

func TestNewProfile(t *testing.T) {
	u := &User{ID: "u-1", Username: "alice", Email: "a@example.com"}

	p := NewProfile(u, nil)
	if p.JoinDate != nil {
		t.Fatalf("expected no join date without a session")
	}

	joined := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	p = NewProfile(u, &Session{JoinDate: joined})
	if p.JoinDate == nil || !p.JoinDate.Equal(joined) {
		t.Fatalf("expected join date %s, got %v", joined, p.JoinDate)
	}
	if p.Username != "alice" || p.Email != "a@example.com" {
		t.Fatalf("identity fields not copied: %+v", p)
	}
}

func TestUser_HasRole(t *testing.T) {
	u := &User{Roles: []string{RoleCustomer}}
	if !u.HasRole(RoleCustomer) || u.HasRole(RoleAdmin) {
		t.Fatalf("unexpected HasRole result for %v", u.Roles)
	}
}
