package identity

import (
	"strings"
	"time"
)

// Roles a user account can hold.
const (
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User represents a registered account. Created exactly once at OTP-verify
// success; contact fields are immutable thereafter.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash []byte
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email address. Empty stays empty.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips formatting characters from a phone number, keeping
// digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
