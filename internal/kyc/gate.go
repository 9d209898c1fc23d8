package kyc

import (
	"context"
	"fmt"
)

// Gate is the request-time authorization check consulted by seller-facing
// endpoints. Any lookup failure is treated as not verified.
type Gate struct {
	repo Repository
}

// NewGate builds a gate over the KYC repository.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// IsVerified reports whether the user's current KYC status is verified.
// Fails closed: unknown users and store errors read as not verified.
func (g *Gate) IsVerified(ctx context.Context, userID string) bool {
	status, err := g.repo.GetSellerStatus(ctx, userID)
	if err != nil {
		return false
	}
	return status.Status == StatusVerified
}

// BlockingReason returns a human-readable explanation of why the user is
// blocked, or an empty string when the user is verified.
func (g *Gate) BlockingReason(ctx context.Context, userID string) string {
	status, err := g.repo.GetSellerStatus(ctx, userID)
	if err != nil {
		return "Please complete your KYC verification to access seller features."
	}

	switch status.Status {
	case StatusVerified:
		return ""
	case StatusUnsubmitted:
		return "Please complete your KYC verification to access seller features."
	case StatusPending:
		return "Your KYC verification is pending review. You will be notified once it is processed."
	case StatusRejected:
		reason := status.RejectionReason
		if reason == "" {
			reason = "verification requirements were not met"
		}
		return fmt.Sprintf("Your KYC verification was rejected: %s. Please resubmit with the corrected details.", reason)
	default:
		return "Please complete your KYC verification to access seller features."
	}
}
