package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/identity"
	"github.com/mandi-market/mandi/internal/kyc"
	"github.com/mandi-market/mandi/internal/web"
)

// RequireVerifiedKyc blocks sellers whose KYC is not verified. Non-seller
// roles pass through untouched. The response carries the stable
// KYC_VERIFICATION_REQUIRED code so clients can branch without matching
// message text.
func RequireVerifiedKyc(gate *kyc.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)
		if role != identity.RoleSeller {
			return c.Next()
		}

		userID, _ := c.Locals(LocalUserID).(string)
		if gate.IsVerified(c.UserContext(), userID) {
			return c.Next()
		}

		reason := gate.BlockingReason(c.UserContext(), userID)
		return web.Fail(c, http.StatusForbidden, web.CodeKycRequired, reason)
	}
}
