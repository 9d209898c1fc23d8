package web

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Stable machine-readable error codes carried in the response envelope.
// Clients branch on these instead of matching message text.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeKycRequired        = "KYC_VERIFICATION_REQUIRED"
	CodeNoActiveChallenge  = "NO_ACTIVE_CHALLENGE"
	CodeNoPendingSignup    = "NO_PENDING_SIGNUP"
	CodeIncorrectCode      = "INCORRECT_CODE"
	CodeCodeExpired        = "CODE_EXPIRED"
	CodeAttemptsExhausted  = "ATTEMPTS_EXHAUSTED"
	CodeAlreadyReviewed    = "ALREADY_REVIEWED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// OK writes a success envelope with the given status and payload.
func OK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with a stable machine code.
func Fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// ErrorHandler renders unhandled errors in the envelope shape. Internal
// details never reach the caller; fiber errors keep their status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return Fail(c, fe.Code, codeForStatus(fe.Code), fe.Message)
	}
	return Fail(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return CodeInternal
	}
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Pagination is the 1-based page window parsed from query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// Offset converts the window into a row offset.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePagination reads page/limit query parameters. Out-of-range values are
// an error for the caller to surface as 400, not clamped.
func ParsePagination(c *fiber.Ctx) (Pagination, error) {
	p := Pagination{Page: 1, Limit: defaultPageLimit}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Pagination{}, fiber.NewError(http.StatusBadRequest, "page must be a positive integer")
		}
		p.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			return Pagination{}, fiber.NewError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		p.Limit = n
	}
	return p, nil
}
