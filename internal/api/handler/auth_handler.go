package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const dobLayout = "2006-01-02"

// AuthHandler exposes the token lifecycle over HTTP. Service errors are
// returned unchanged and rendered by the central error handler.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request / Response types ---

type registerRequest struct {
	Username string `json:"username"  form:"username"  validate:"required,max=64"`
	Password string `json:"password"  form:"password"  validate:"required,min=8,max=72"`
	Role     string `json:"role"      form:"role"      validate:"required,oneof=Admin Customer Office"`
	Email    string `json:"email"     form:"email"     validate:"omitempty,email"`
	Phone    string `json:"phone"     form:"phone"     validate:"omitempty,max=32"`
	FullName string `json:"full_name" form:"full_name" validate:"omitempty,max=128"`
	Dob      string `json:"dob"       form:"dob"       validate:"omitempty,datetime=2006-01-02"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"  form:"access_token"  validate:"required"`
	RefreshToken string `json:"refresh_token" form:"refresh_token" validate:"required"`
}

type registerResponse struct {
	User *domain.User `json:"user"`
}

type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Expiration   time.Time      `json:"expiration"`
	User         domain.Profile `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newTokenResponse(res *ports.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		Expiration:   res.Tokens.ExpiresAt,
		User:         res.Profile,
	}
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Register creates a new user account holding one role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		Role:     req.Role,
		Email:    req.Email,
		Phone:    req.Phone,
		FullName: req.FullName,
	}
	if req.Dob != "" {
		dob, err := time.Parse(dobLayout, req.Dob)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dob must be a date in YYYY-MM-DD format")
		}
		in.Dob = &dob
	}

	user, err := h.authService.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{User: user})
}

// Login authenticates a user and issues an access/refresh token pair.
//
// @Summary      Issue an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/access-token [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTokenResponse(res))
}

// Refresh exchanges a possibly expired access token and its current refresh
// token for a new pair. The presented refresh token is consumed.
//
// @Summary      Refresh a token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Current token pair"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTokenResponse(res))
}

// Revoke invalidates the named user's refresh token. Callers may revoke their
// own token; Admins may revoke anyone's.
//
// @Summary      Revoke a refresh token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username whose refresh token is revoked"
// @Success      200       {object}  messageResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /auth/revoke-token/{username} [post]
func (h *AuthHandler) Revoke(c echo.Context) error {
	actor, err := ctxCaller(c)
	if err != nil {
		return err
	}

	username := c.Param("username")
	if err := h.authService.Revoke(c.Request().Context(), actor, username); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "refresh token revoked"})
}
