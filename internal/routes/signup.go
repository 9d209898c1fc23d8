package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/signup"
)

// RegisterSignupRoutes wires the public OTP-gated signup endpoints.
func RegisterSignupRoutes(r fiber.Router, h *signup.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/signup")
	if rateLimiter != nil {
		group.Use(rateLimiter)
	}
	group.Post("/start", h.Start)
	group.Post("/verify-otp", h.Verify)
	group.Post("/resend-otp", h.Resend)
}
