package kyc

import (
	"context"
	"errors"
)

// ErrSubmissionNotFound indicates no submission matches the identifier.
var ErrSubmissionNotFound = errors.New("kyc submission not found")

// ErrStatusNotFound indicates the user has no seller status row.
var ErrStatusNotFound = errors.New("seller kyc status not found")

// Repository persists submissions, documents, seller status rows and the
// audit history. The composite write methods are atomic so the summary row
// can never drift from the submission it points to.
type Repository interface {
	// CreateSubmission persists a new pending submission with its documents,
	// updates the seller status row and appends the audit entry in one
	// transaction.
	CreateSubmission(ctx context.Context, sub Submission, docs []Document, status SellerStatus, entry HistoryEntry) error
	// FinalizeReview persists the reviewed submission, the updated seller
	// status and the audit entry in one transaction.
	FinalizeReview(ctx context.Context, sub Submission, status SellerStatus, entry HistoryEntry) error

	GetSubmission(ctx context.Context, id string) (Submission, error)
	GetDocuments(ctx context.Context, submissionID string) ([]Document, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Submission, error)
	ListPending(ctx context.Context, limit, offset int) ([]Submission, error)

	// InitSellerStatus creates the unsubmitted summary row for a new seller.
	InitSellerStatus(ctx context.Context, userID string) error
	GetSellerStatus(ctx context.Context, userID string) (SellerStatus, error)

	// CountByStatus aggregates seller status rows grouped by status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
