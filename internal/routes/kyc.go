package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/identity"
	"github.com/mandi-market/mandi/internal/kyc"
	"github.com/mandi-market/mandi/internal/middleware"
)

// RegisterKycRoutes wires the seller-facing KYC endpoints.
func RegisterKycRoutes(r fiber.Router, h *kyc.Handler) {
	group := r.Group("/kyc", middleware.RequireRole(identity.RoleSeller))
	group.Post("/submit", h.Submit)
	group.Get("/status", h.Status)
	group.Get("/submissions", h.ListMine)
}

// RegisterAdminKycRoutes wires the admin review endpoints. Every admin call
// is audit-logged; the review POST replays through the idempotency middleware
// when an Idempotency-Key is sent.
func RegisterAdminKycRoutes(r fiber.Router, h *kyc.Handler, audit fiber.Handler, idem fiber.Handler) {
	group := r.Group("/admin/kyc", middleware.RequireRole(identity.RoleAdmin), audit)
	group.Get("/pending", h.Pending)
	group.Get("/stats", h.Stats)
	group.Get("/submissions/:id", h.Get)
	if idem != nil {
		group.Post("/submissions/:id/review", idem, h.Review)
	} else {
		group.Post("/submissions/:id/review", h.Review)
	}
}
