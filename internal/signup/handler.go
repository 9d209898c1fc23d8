package signup

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/web"
)

// Handler exposes the public signup endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a signup HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type startRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Start begins a signup attempt and dispatches an OTP.
func (h *Handler) Start(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}

	receipt, err := h.service.Start(c.UserContext(), StartInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return web.OK(c, http.StatusOK, fiber.Map{
		"channel":     receipt.Channel,
		"destination": receipt.Destination,
		"expires_in":  int(receipt.ExpiresIn.Seconds()),
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// Verify checks the submitted OTP and creates the account.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}

	userID, err := h.service.Verify(c.UserContext(), VerifyInput{Email: req.Email, Phone: req.Phone, Code: req.Code})
	if err != nil {
		return h.fail(c, err)
	}

	return web.OK(c, http.StatusCreated, fiber.Map{"user_id": userID})
}

type resendRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Resend issues a fresh OTP for the contact.
func (h *Handler) Resend(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}

	receipt, err := h.service.Resend(c.UserContext(), ResendInput{Email: req.Email, Phone: req.Phone})
	if err != nil {
		return h.fail(c, err)
	}

	return web.OK(c, http.StatusOK, fiber.Map{
		"channel":     receipt.Channel,
		"destination": receipt.Destination,
		"expires_in":  int(receipt.ExpiresIn.Seconds()),
	})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, verr.Error())
	case errors.Is(err, ErrPhoneRegistered):
		return web.Fail(c, http.StatusConflict, web.CodeConflict, "phone is already registered")
	case errors.Is(err, ErrEmailRegistered):
		return web.Fail(c, http.StatusConflict, web.CodeConflict, "email is already registered")
	case errors.Is(err, ErrEmailConflict):
		return web.Fail(c, http.StatusConflict, web.CodeConflict, "email was claimed by another account, restart signup")
	case errors.Is(err, ErrNoActiveChallenge):
		return web.Fail(c, http.StatusBadRequest, web.CodeNoActiveChallenge, "no active code for this contact, request a new one")
	case errors.Is(err, ErrAttemptsExhausted):
		return web.Fail(c, http.StatusTooManyRequests, web.CodeAttemptsExhausted, "too many incorrect attempts, request a new code")
	case errors.Is(err, ErrCodeExpired):
		return web.Fail(c, http.StatusBadRequest, web.CodeCodeExpired, "code expired, request a new one")
	case errors.Is(err, ErrIncorrectCode):
		return web.Fail(c, http.StatusBadRequest, web.CodeIncorrectCode, "incorrect code")
	case errors.Is(err, ErrNoPendingSignup):
		return web.Fail(c, http.StatusBadRequest, web.CodeNoPendingSignup, "no pending signup for this contact, start signup first")
	case errors.Is(err, ErrDeliveryFailed):
		return web.Fail(c, http.StatusInternalServerError, web.CodeDeliveryFailed, "could not deliver the code, try again")
	default:
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
}
