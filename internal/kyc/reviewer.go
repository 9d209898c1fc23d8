package kyc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mandi-market/mandi/internal/metrics"
)

// Review actions an admin can take on a pending submission.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

const approvedReason = "approved"

// ErrAlreadyReviewed indicates the submission has left the pending state;
// review is a one-shot transition per submission.
var ErrAlreadyReviewed = errors.New("kyc submission already reviewed")

// ReviewInput carries one admin review decision.
type ReviewInput struct {
	AdminID         string
	SubmissionID    string
	Action          string
	RejectionReason string
	AdminNotes      string
}

// ReviewResult reports the outcome of a review.
type ReviewResult struct {
	SubmissionID string
	Status       Status
}

// Reviewer applies admin decisions to pending submissions. It is the only
// writer of reviewed transitions.
type Reviewer struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewer builds a reviewer instance.
func NewReviewer(repo Repository, logger *slog.Logger) *Reviewer {
	return &Reviewer{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Review transitions a pending submission to verified or rejected, updates
// the seller summary row and appends the audit entry. The submission record
// is immutable afterwards.
func (r *Reviewer) Review(ctx context.Context, input ReviewInput) (ReviewResult, error) {
	var target Status
	switch input.Action {
	case ActionApprove:
		target = StatusVerified
	case ActionReject:
		target = StatusRejected
	default:
		return ReviewResult{}, &ValidationError{Field: "action", Reason: "must be approve or reject"}
	}

	if target == StatusRejected && blank(input.RejectionReason) {
		return ReviewResult{}, &ValidationError{Field: "rejection_reason", Reason: "is required when rejecting"}
	}

	sub, err := r.repo.GetSubmission(ctx, input.SubmissionID)
	if err != nil {
		return ReviewResult{}, err
	}
	if sub.Status != StatusPending {
		return ReviewResult{}, ErrAlreadyReviewed
	}
	if !CanTransition(sub.Status, target) {
		return ReviewResult{}, fmt.Errorf("illegal kyc transition %s -> %s", sub.Status, target)
	}

	now := r.now()
	sub.Status = target
	sub.ReviewedBy = input.AdminID
	sub.ReviewedAt = &now
	sub.AdminNotes = input.AdminNotes
	if target == StatusRejected {
		sub.RejectionReason = input.RejectionReason
	}

	status := SellerStatus{
		UserID:              sub.UserID,
		Status:              target,
		CurrentSubmissionID: sub.ID,
		UpdatedAt:           now,
	}
	reason := approvedReason
	if target == StatusVerified {
		status.VerifiedAt = &now
		status.VerifiedBy = input.AdminID
	} else {
		status.RejectionReason = input.RejectionReason
		reason = input.RejectionReason
	}

	entry := HistoryEntry{
		ID:           uuid.New().String(),
		UserID:       sub.UserID,
		SubmissionID: sub.ID,
		FromStatus:   StatusPending,
		ToStatus:     target,
		ActorID:      input.AdminID,
		Reason:       reason,
		Notes:        input.AdminNotes,
		CreatedAt:    now,
	}

	if err := r.repo.FinalizeReview(ctx, sub, status, entry); err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			// The pending row vanished between load and write: a concurrent
			// review won the transition.
			return ReviewResult{}, ErrAlreadyReviewed
		}
		return ReviewResult{}, fmt.Errorf("finalize kyc review: %w", err)
	}

	metrics.KycReviews.WithLabelValues(string(target)).Inc()
	r.logger.Info("kyc submission reviewed",
		slog.String("submission_id", sub.ID),
		slog.String("user_id", sub.UserID),
		slog.String("admin_id", input.AdminID),
		slog.String("status", string(target)),
	)
	return ReviewResult{SubmissionID: sub.ID, Status: target}, nil
}
