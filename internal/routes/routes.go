package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mandi-market/mandi/internal/auth"
	"github.com/mandi-market/mandi/internal/config"
	"github.com/mandi-market/mandi/internal/identity"
	"github.com/mandi-market/mandi/internal/kyc"
	"github.com/mandi-market/mandi/internal/middleware"
	"github.com/mandi-market/mandi/internal/notification"
	"github.com/mandi-market/mandi/internal/otp"
	"github.com/mandi-market/mandi/internal/signup"
)

// Deps aggregates shared dependencies required to wire routes. The store and
// notifier fields override the defaults derived from DB/Cache when set.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	Users     identity.Repository
	OtpLedger otp.Ledger
	KycRepo   kyc.Repository
	Notifier  notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Ops endpoints
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Stores
	userRepo, otpLedger, kycRepo := d.Users, d.OtpLedger, d.KycRepo
	if userRepo == nil {
		if d.DB != nil {
			userRepo = identity.NewPostgresRepository(d.DB)
		} else {
			userRepo = identity.NewMemoryRepository()
		}
	}
	if otpLedger == nil {
		if d.DB != nil {
			otpLedger = otp.NewPostgresLedger(d.DB)
		} else {
			otpLedger = otp.NewMemoryLedger()
		}
	}
	if kycRepo == nil {
		if d.DB != nil {
			kycRepo = kyc.NewPostgresRepository(d.DB)
		} else {
			kycRepo = kyc.NewMemoryRepository()
		}
	}

	var revoked auth.RevocationStore
	if d.Cache != nil {
		revoked = auth.NewRedisRevocationStore(d.Cache)
	} else {
		revoked = auth.NewMemoryRevocationStore()
	}

	// Services and handlers
	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}
	signupSvc := signup.NewService(otpLedger, userRepo, kycRepo, notifier, signup.Policy{
		TTL:         d.Cfg.OtpTTL,
		MaxAttempts: d.Cfg.OtpMaxAttempts,
		BcryptCost:  d.Cfg.BcryptCost,
	}, d.Logger)
	authSvc := auth.NewService(d.Cfg, userRepo, revoked, d.Logger)
	kycSvc := kyc.NewService(kycRepo, d.Logger)
	reviewer := kyc.NewReviewer(kycRepo, d.Logger)
	gate := kyc.NewGate(kycRepo)

	signupHandler := signup.NewHandler(signupSvc)
	authHandler := auth.NewHandler(authSvc)
	kycHandler := kyc.NewHandler(kycSvc, reviewer)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.OtpRateLimit(d.Cache, 5)
	RegisterSignupRoutes(api, signupHandler, rateLimiter)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(authSvc)
	protected := api.Group("", jwtmw)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		user, err := userRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"phone":      user.Phone,
			"role":       user.Role,
			"active":     user.Active,
			"created_at": user.CreatedAt,
		})
	})

	RegisterKycRoutes(protected, kycHandler)

	// Seller feature routes sit behind the KYC gate; product and order
	// endpoints attach here as they are built.
	seller := protected.Group("/seller", middleware.RequireVerifiedKyc(gate))
	seller.Get("/dashboard", func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{"user_id": uid, "kyc_verified": true})
	})

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterAdminKycRoutes(protected, kycHandler, middleware.Audit(d.Logger), idem)

	return nil
}
