package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/token"
)

// Context keys set by Auth.
const (
	CtxUsername = "username"
	CtxRoles    = "roles"
	CtxTokenID  = "jti"
)

// TokenParser fully validates a bearer access token.
type TokenParser interface {
	Parse(raw string) (*token.AccessClaims, error)
}

// Auth validates the bearer access token and injects its claims into context.
func Auth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := parser.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			roles := []string(claims.Roles)
			if roles == nil {
				roles = []string{}
			}
			c.Set(CtxUsername, claims.Subject)
			c.Set(CtxRoles, roles)
			c.Set(CtxTokenID, claims.ID)

			return next(c)
		}
	}
}
