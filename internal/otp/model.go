package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Purposes a challenge can be issued for.
const (
	PurposeSignup = "signup"
)

// Delivery channels for a one-time code.
const (
	ChannelSms   = "sms"
	ChannelEmail = "email"
)

// CodeLength is the number of digits in an issued code.
const CodeLength = 6

// PendingSignup is the not-yet-created user record carried inside a signup
// challenge. It exists only here until promoted at verify time.
type PendingSignup struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PasswordHash []byte `json:"password_hash"`
	Role         string `json:"role"`
}

// Challenge is a single issued one-time code and its verification state.
// Rows are never deleted; superseded challenges stay behind as an audit
// trail and lose relevance through the strict most-recent-wins lookup.
type Challenge struct {
	ID          string
	Seq         int64 // store-assigned, strictly increasing issuance order
	Phone       string
	Email       string
	Code        string
	Purpose     string
	Channel     string
	Payload     *PendingSignup
	Attempts    int
	MaxAttempts int
	Used        bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the challenge TTL has elapsed at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

var codeSpan = big.NewInt(900000)

// GenerateCode draws a 6-digit code uniformly from 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
