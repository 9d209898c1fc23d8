package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// OtpRateLimit limits signup/OTP requests per contact (or IP) using Redis if
// available. The OTP state machine assumes this outer layer already shields
// it from brute-force volume.
func OtpRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			Phone string `json:"phone"`
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		contact := strings.TrimSpace(req.Phone)
		if contact == "" {
			contact = strings.TrimSpace(req.Email)
		}
		if contact == "" {
			contact = c.IP()
		}
		key := "rl:otp:" + contact
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
