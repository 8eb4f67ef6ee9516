package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
)

// errorResponse documents the error envelope rendered by the central handler.
type errorResponse struct {
	Error string `json:"error"`
}

// ctxCaller returns the authenticated username injected by the Auth
// middleware. An empty value means the route was mounted without it.
func ctxCaller(c echo.Context) (string, error) {
	username, _ := c.Get(middleware.CtxUsername).(string)
	if username == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return username, nil
}
