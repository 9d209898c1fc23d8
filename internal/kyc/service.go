package kyc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mandi-market/mandi/internal/metrics"
)

// ErrAlreadyVerified indicates a verified seller attempted self-service
// resubmission; changes to a verified record are admin-initiated only.
var ErrAlreadyVerified = errors.New("kyc already verified")

// ValidationError names the first missing or invalid field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// SubmitInput carries one identity/business verification request.
type SubmitInput struct {
	LegalName        string
	GovernmentIDType GovernmentIDType
	GovernmentID     string
	TaxID            string
	AddressLine1     string
	AddressLine2     string
	City             string
	State            string
	Pincode          string
	BusinessType     BusinessType
	BusinessName     string
	Documents        []DocumentInput
}

// DocumentInput describes one uploaded document reference.
type DocumentInput struct {
	Type     DocumentType
	Name     string
	URL      string
	Size     int64
	MimeType string
}

// SubmissionWithDocuments joins a submission with its ordered documents.
type SubmissionWithDocuments struct {
	Submission Submission
	Documents  []Document
}

// Service manages the submission side of the KYC lifecycle.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a KYC service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Submit validates and records a new pending submission, moves the seller
// summary to pending and appends the audit entry. Resubmission while a prior
// submission is still pending is allowed; the summary pointer always tracks
// the latest submission.
func (s *Service) Submit(ctx context.Context, userID string, input SubmitInput) (string, error) {
	if err := validateSubmitInput(input); err != nil {
		return "", err
	}

	prior := StatusUnsubmitted
	var priorStatus SellerStatus
	existing, err := s.repo.GetSellerStatus(ctx, userID)
	switch {
	case err == nil:
		prior = existing.Status
		priorStatus = existing
	case errors.Is(err, ErrStatusNotFound):
		// First contact with KYC for this user; treated as unsubmitted.
	default:
		return "", err
	}

	if prior == StatusVerified {
		return "", ErrAlreadyVerified
	}
	if !CanTransition(prior, StatusPending) {
		return "", fmt.Errorf("illegal kyc transition %s -> %s", prior, StatusPending)
	}

	now := s.now()
	sub := Submission{
		ID:               uuid.New().String(),
		UserID:           userID,
		LegalName:        input.LegalName,
		GovernmentIDType: input.GovernmentIDType,
		GovernmentID:     input.GovernmentID,
		TaxID:            input.TaxID,
		AddressLine1:     input.AddressLine1,
		AddressLine2:     input.AddressLine2,
		City:             input.City,
		State:            input.State,
		Pincode:          input.Pincode,
		BusinessType:     input.BusinessType,
		BusinessName:     input.BusinessName,
		Status:           StatusPending,
		CreatedAt:        now,
	}

	docs := make([]Document, 0, len(input.Documents))
	for i, d := range input.Documents {
		if !d.Type.Valid() {
			return "", &ValidationError{Field: fmt.Sprintf("documents[%d].type", i), Reason: "unknown document type"}
		}
		docs = append(docs, Document{
			ID:           uuid.New().String(),
			SubmissionID: sub.ID,
			UserID:       userID,
			Type:         d.Type,
			Name:         d.Name,
			URL:          d.URL,
			Size:         d.Size,
			MimeType:     d.MimeType,
			UploadedAt:   now,
		})
	}

	// verified_at/verified_by from a prior cycle survive until this
	// submission is itself resolved; only the review clears or sets them.
	status := SellerStatus{
		UserID:              userID,
		Status:              StatusPending,
		CurrentSubmissionID: sub.ID,
		VerifiedAt:          priorStatus.VerifiedAt,
		VerifiedBy:          priorStatus.VerifiedBy,
		RejectionReason:     priorStatus.RejectionReason,
		UpdatedAt:           now,
	}

	entry := HistoryEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		SubmissionID: sub.ID,
		FromStatus:   prior,
		ToStatus:     StatusPending,
		ActorID:      userID,
		Reason:       "kyc details submitted",
		CreatedAt:    now,
	}

	if err := s.repo.CreateSubmission(ctx, sub, docs, status, entry); err != nil {
		return "", fmt.Errorf("create kyc submission: %w", err)
	}

	metrics.KycSubmissions.Inc()
	s.logger.Info("kyc submission created",
		slog.String("user_id", userID),
		slog.String("submission_id", sub.ID),
		slog.String("prior_status", string(prior)),
	)
	return sub.ID, nil
}

// GetSubmission returns a submission by id.
func (s *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return s.repo.GetSubmission(ctx, id)
}

// GetSubmissionWithDocuments returns a submission joined with its documents
// ordered by upload time.
func (s *Service) GetSubmissionWithDocuments(ctx context.Context, id string) (SubmissionWithDocuments, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return SubmissionWithDocuments{}, err
	}
	docs, err := s.repo.GetDocuments(ctx, id)
	if err != nil {
		return SubmissionWithDocuments{}, err
	}
	return SubmissionWithDocuments{Submission: sub, Documents: docs}, nil
}

// ListByUser returns the user's submissions, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// ListPending returns pending submissions in submission order.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]Submission, error) {
	return s.repo.ListPending(ctx, limit, offset)
}

// SellerStatusFor returns the summary row for a user.
func (s *Service) SellerStatusFor(ctx context.Context, userID string) (SellerStatus, error) {
	return s.repo.GetSellerStatus(ctx, userID)
}

// Stats aggregates seller status rows grouped by status.
func (s *Service) Stats(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func validateSubmitInput(input SubmitInput) error {
	if blank(input.LegalName) {
		return missing("legal_name")
	}
	if input.GovernmentIDType == "" {
		return missing("government_id_type")
	}
	if !input.GovernmentIDType.Valid() {
		return &ValidationError{Field: "government_id_type", Reason: "unknown government id type"}
	}
	if blank(input.GovernmentID) {
		return missing("government_id")
	}
	if blank(input.AddressLine1) {
		return missing("address_line1")
	}
	if blank(input.City) {
		return missing("city")
	}
	if blank(input.State) {
		return missing("state")
	}
	if blank(input.Pincode) {
		return missing("pincode")
	}
	if input.BusinessType == "" {
		return missing("business_type")
	}
	if !input.BusinessType.Valid() {
		return &ValidationError{Field: "business_type", Reason: "unknown business type"}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
