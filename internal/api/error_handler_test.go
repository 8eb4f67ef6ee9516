package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "invalid credentials"},
		{"locked", domain.ErrTooManyAttempts, http.StatusTooManyRequests, "too many failed login attempts"},
		{"invalid request", fmt.Errorf("login: %w", domain.ErrInvalidRequest), http.StatusBadRequest, "invalid client request"},
		{"invalid token hides cause", fmt.Errorf("%w: signature is invalid", domain.ErrInvalidToken), http.StatusBadRequest, "invalid access token or refresh token"},
		{"invalid user", domain.ErrInvalidUser, http.StatusBadRequest, "invalid user name"},
		{"role not found", fmt.Errorf("identity: %w: Customer", domain.ErrRoleNotFound), http.StatusBadRequest, "role not found"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"user exists", fmt.Errorf("register: %w", domain.ErrUserExists), http.StatusConflict, "user already exists"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"unexpected", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
		{"session conflict leaks nothing", domain.ErrSessionConflict, http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, resp.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_LogsUnexpected(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/boom", nil), rec)

	NewHTTPErrorHandler(log)(errors.New("disk on fire"), c)

	if !strings.Contains(buf.String(), "disk on fire") {
		t.Fatalf("expected cause in logs, got %q", buf.String())
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Fatalf("cause leaked to client: %s", rec.Body.String())
	}
}

func TestHTTPErrorHandler_SkipsCommitted(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrForbidden, c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
