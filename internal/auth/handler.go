package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/web"
)

// Handler exposes authentication endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}
	if req.Password == "" {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "password: is required")
	}

	pair, user, err := h.service.Login(c.UserContext(), req.Email, req.Phone, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "invalid credentials")
		case errors.Is(err, ErrAccountDisabled):
			return web.Fail(c, http.StatusForbidden, web.CodeForbidden, "account is disabled")
		default:
			return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
		}
	}

	return web.OK(c, http.StatusOK, fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"user_id":       user.ID,
		"role":          user.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "refresh_token: is required")
	}

	access, expiresIn, err := h.service.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "invalid refresh token")
	}
	return web.OK(c, http.StatusOK, fiber.Map{"access_token": access, "expires_in": expiresIn})
}

// Logout revokes the presented bearer token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	token := BearerToken(c)
	if token == "" {
		return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "missing bearer token")
	}
	if err := h.service.Logout(c.UserContext(), token); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "invalid token")
		}
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
	return web.OK(c, http.StatusOK, fiber.Map{"logged_out": true})
}

// BearerToken extracts the bearer token from the Authorization header,
// returning an empty string when absent.
func BearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("Bearer "):])
}
