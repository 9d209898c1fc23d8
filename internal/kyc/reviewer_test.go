package kyc

import (
	"context"
	"errors"
	"testing"

	"github.com/mandi-market/mandi/internal/logging"
)

func pendingSubmission(t *testing.T, repo Repository, userID string) string {
	t.Helper()
	svc := NewService(repo, logging.Discard())
	subID, err := svc.Submit(context.Background(), userID, validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return subID
}

func TestReviewApprove(t *testing.T) {
	repo := NewMemoryRepository()
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID := pendingSubmission(t, repo, "seller-1")

	result, err := reviewer.Review(ctx, ReviewInput{
		AdminID:      "admin-1",
		SubmissionID: subID,
		Action:       ActionApprove,
		AdminNotes:   "documents legible, address matches",
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if result.Status != StatusVerified {
		t.Fatalf("expected verified, got %s", result.Status)
	}

	sub, err := repo.GetSubmission(ctx, subID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub.Status != StatusVerified || sub.ReviewedBy != "admin-1" || sub.ReviewedAt == nil {
		t.Fatalf("expected reviewed submission fields set, got %+v", sub)
	}

	status, err := repo.GetSellerStatus(ctx, "seller-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Status != StatusVerified || status.VerifiedBy != "admin-1" || status.VerifiedAt == nil {
		t.Fatalf("expected verified summary row, got %+v", status)
	}

	history := repo.(*memoryRepository).History()
	last := history[len(history)-1]
	if last.FromStatus != StatusPending || last.ToStatus != StatusVerified {
		t.Fatalf("expected pending -> verified audit entry, got %s -> %s", last.FromStatus, last.ToStatus)
	}
	if last.ActorID != "admin-1" || last.Reason != "approved" {
		t.Fatalf("unexpected audit entry: %+v", last)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	repo := NewMemoryRepository()
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID := pendingSubmission(t, repo, "seller-1")

	_, err := reviewer.Review(ctx, ReviewInput{
		AdminID:      "admin-1",
		SubmissionID: subID,
		Action:       ActionReject,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "rejection_reason" {
		t.Fatalf("expected rejection_reason validation error, got %v", err)
	}

	// The refused review left no trace on the submission.
	sub, err := repo.GetSubmission(ctx, subID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub.Status != StatusPending {
		t.Fatalf("expected submission still pending, got %s", sub.Status)
	}
}

func TestReviewReject(t *testing.T) {
	repo := NewMemoryRepository()
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID := pendingSubmission(t, repo, "seller-1")

	result, err := reviewer.Review(ctx, ReviewInput{
		AdminID:         "admin-1",
		SubmissionID:    subID,
		Action:          ActionReject,
		RejectionReason: "address proof illegible",
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if result.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", result.Status)
	}

	status, err := repo.GetSellerStatus(ctx, "seller-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Status != StatusRejected || status.RejectionReason != "address proof illegible" {
		t.Fatalf("expected rejection recorded on summary, got %+v", status)
	}
	if status.VerifiedAt != nil || status.VerifiedBy != "" {
		t.Fatalf("expected no verification stamp on rejection, got %+v", status)
	}

	history := repo.(*memoryRepository).History()
	last := history[len(history)-1]
	if last.Reason != "address proof illegible" {
		t.Fatalf("expected rejection reason in audit entry, got %q", last.Reason)
	}
}

func TestReviewIsOneShot(t *testing.T) {
	repo := NewMemoryRepository()
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID := pendingSubmission(t, repo, "seller-1")

	if _, err := reviewer.Review(ctx, ReviewInput{AdminID: "admin-1", SubmissionID: subID, Action: ActionApprove}); err != nil {
		t.Fatalf("first review: %v", err)
	}

	if _, err := reviewer.Review(ctx, ReviewInput{AdminID: "admin-2", SubmissionID: subID, Action: ActionApprove}); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed on second approve, got %v", err)
	}
	if _, err := reviewer.Review(ctx, ReviewInput{
		AdminID:         "admin-2",
		SubmissionID:    subID,
		Action:          ActionReject,
		RejectionReason: "changed my mind",
	}); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed on reject after approve, got %v", err)
	}
}

func TestReviewUnknownInputs(t *testing.T) {
	repo := NewMemoryRepository()
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	_, err := reviewer.Review(ctx, ReviewInput{AdminID: "admin-1", SubmissionID: "anything", Action: "escalate"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "action" {
		t.Fatalf("expected action validation error, got %v", err)
	}

	if _, err := reviewer.Review(ctx, ReviewInput{
		AdminID:      "admin-1",
		SubmissionID: "missing",
		Action:       ActionApprove,
	}); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}
