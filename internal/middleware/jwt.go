package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/auth"
	"github.com/mandi-market/mandi/internal/web"
)

// Locals keys populated by JWTAuth.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// JWTAuth validates bearer access tokens, including the revocation-store
// check, and stores the caller's identity in request locals.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.BearerToken(c)
		if token == "" {
			return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "missing bearer token")
		}

		claims, err := svc.VerifyAccess(c.UserContext(), token)
		if err != nil {
			return web.Fail(c, http.StatusUnauthorized, web.CodeUnauthorized, "invalid or revoked token")
		}

		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireRole blocks callers whose token does not carry the given role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals(LocalRole).(string); got != role {
			return web.Fail(c, http.StatusForbidden, web.CodeForbidden, "insufficient role")
		}
		return c.Next()
	}
}
