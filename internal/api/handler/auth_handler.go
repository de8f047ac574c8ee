package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-service/internal/api/middleware"
	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// AuthHandler serves the /user endpoints. Errors are returned to the
// central echo error handler rather than rendered here.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createUserResponse struct {
	Username string `json:"username"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Roles    domain.Roles `json:"roles"`
}

// CreateUser registers a new account.
//
//	POST /user  {"username": "...", "password": "..."}
//	201 {"username": "..."}
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidationError("body", "malformed JSON")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createUserResponse{Username: user.Username})
}

// IssueToken exchanges HTTP Basic credentials for a bearer token.
//
//	POST /user/token  Authorization: Basic base64(username:password)
//	200 {"token": "..."}
func (h *AuthHandler) IssueToken(c echo.Context) error {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return domain.ErrInvalidCredentials
	}

	token, err := h.authService.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// RefreshToken trades a token still inside its refresh window for a new one.
//
//	POST /user/token/refresh  Authorization: Bearer <token>
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw, ok := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return domain.ErrTokenInvalid
	}

	token, err := h.authService.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Me returns the account behind the bearer token. Requires the Auth middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{ID: user.ID, Username: user.Username, Roles: user.Roles})
}
