package kyc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mandi-market/mandi/internal/logging"
)

func validSubmit() SubmitInput {
	return SubmitInput{
		LegalName:        "Asha Devi",
		GovernmentIDType: IDAadhaar,
		GovernmentID:     "1234-5678-9012",
		AddressLine1:     "14 Mango Grove Road",
		City:             "Nashik",
		State:            "Maharashtra",
		Pincode:          "422001",
		BusinessType:     BusinessIndividual,
		Documents: []DocumentInput{
			{Type: DocGovernmentIDFront, Name: "aadhaar-front.jpg", URL: "s3://kyc/aadhaar-front.jpg", Size: 204800, MimeType: "image/jpeg"},
			{Type: DocAddressProof, Name: "electricity-bill.pdf", URL: "s3://kyc/electricity-bill.pdf", Size: 102400, MimeType: "application/pdf"},
		},
	}
}

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	if err := repo.InitSellerStatus(ctx, "seller-1"); err != nil {
		t.Fatalf("init status: %v", err)
	}

	subID, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	sub, err := repo.GetSubmission(ctx, subID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub.Status != StatusPending {
		t.Fatalf("expected pending submission, got %s", sub.Status)
	}

	status, err := repo.GetSellerStatus(ctx, "seller-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Status != StatusPending {
		t.Fatalf("expected pending seller status, got %s", status.Status)
	}
	if status.CurrentSubmissionID != subID {
		t.Fatalf("expected summary to point at the submission")
	}

	docs, err := repo.GetDocuments(ctx, subID)
	if err != nil {
		t.Fatalf("get documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	history := repo.(*memoryRepository).History()
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	if history[0].FromStatus != StatusUnsubmitted || history[0].ToStatus != StatusPending {
		t.Fatalf("expected unsubmitted -> pending entry, got %s -> %s", history[0].FromStatus, history[0].ToStatus)
	}
	if history[0].ActorID != "seller-1" {
		t.Fatalf("expected the seller as actor, got %s", history[0].ActorID)
	}
}

func TestSubmitValidationReportsFirstField(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SubmitInput)
		field  string
	}{
		{"legal name", func(in *SubmitInput) { in.LegalName = "   " }, "legal_name"},
		{"id type missing", func(in *SubmitInput) { in.GovernmentIDType = "" }, "government_id_type"},
		{"id type unknown", func(in *SubmitInput) { in.GovernmentIDType = "ration_card" }, "government_id_type"},
		{"id number", func(in *SubmitInput) { in.GovernmentID = "" }, "government_id"},
		{"address", func(in *SubmitInput) { in.AddressLine1 = "" }, "address_line1"},
		{"city", func(in *SubmitInput) { in.City = "" }, "city"},
		{"state", func(in *SubmitInput) { in.State = "" }, "state"},
		{"pincode", func(in *SubmitInput) { in.Pincode = "" }, "pincode"},
		{"business type missing", func(in *SubmitInput) { in.BusinessType = "" }, "business_type"},
		{"business type unknown", func(in *SubmitInput) { in.BusinessType = "sole_trader" }, "business_type"},
		{"document type", func(in *SubmitInput) { in.Documents[0].Type = "selfie" }, "documents[0].type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validSubmit()
			tc.mutate(&input)
			_, err := svc.Submit(ctx, "seller-1", input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, verr.Field)
			}
		})
	}

	// Nothing was persisted by the failed submissions.
	if len(repo.(*memoryRepository).History()) != 0 {
		t.Fatalf("expected no history entries after rejected input")
	}
}

func TestResubmissionTracksLatestSubmission(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	first, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	status, err := repo.GetSellerStatus(ctx, "seller-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.CurrentSubmissionID != second {
		t.Fatalf("expected summary to track the latest submission")
	}

	// Both submissions survive as records.
	if _, err := repo.GetSubmission(ctx, first); err != nil {
		t.Fatalf("first submission should remain: %v", err)
	}

	subs, err := svc.ListByUser(ctx, "seller-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
}

func TestSubmitRefusedWhenVerified(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := reviewer.Review(ctx, ReviewInput{AdminID: "admin-1", SubmissionID: subID, Action: ActionApprove}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := svc.Submit(ctx, "seller-1", validSubmit()); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestSubmitAllowedAfterRejection(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	subID, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := reviewer.Review(ctx, ReviewInput{
		AdminID:         "admin-1",
		SubmissionID:    subID,
		Action:          ActionReject,
		RejectionReason: "address proof illegible",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	resubmitted, err := svc.Submit(ctx, "seller-1", validSubmit())
	if err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}

	status, err := repo.GetSellerStatus(ctx, "seller-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Status != StatusPending || status.CurrentSubmissionID != resubmitted {
		t.Fatalf("expected pending status on resubmission, got %+v", status)
	}
	// The stale rejection reason is carried until the new review resolves it.
	if status.RejectionReason != "address proof illegible" {
		t.Fatalf("expected prior rejection reason retained, got %q", status.RejectionReason)
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusUnsubmitted, StatusPending},
		{StatusRejected, StatusPending},
		{StatusPending, StatusPending},
		{StatusPending, StatusVerified},
		{StatusPending, StatusRejected},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusVerified, StatusPending},
		{StatusVerified, StatusRejected},
		{StatusUnsubmitted, StatusVerified},
		{StatusUnsubmitted, StatusRejected},
		{StatusRejected, StatusVerified},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}

	if !StatusVerified.Terminal() || !StatusRejected.Terminal() {
		t.Fatalf("expected verified and rejected to be terminal")
	}
	if StatusPending.Terminal() || StatusUnsubmitted.Terminal() {
		t.Fatalf("expected pending and unsubmitted to be non-terminal")
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	reviewer := NewReviewer(repo, logging.Discard())
	ctx := context.Background()

	if err := repo.InitSellerStatus(ctx, "seller-untouched"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := svc.Submit(ctx, "seller-pending", validSubmit()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	approvedID, err := svc.Submit(ctx, "seller-approved", validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := reviewer.Review(ctx, ReviewInput{AdminID: "admin-1", SubmissionID: approvedID, Action: ActionApprove}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	counts, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts[StatusUnsubmitted] != 1 || counts[StatusPending] != 1 || counts[StatusVerified] != 1 || counts[StatusRejected] != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestListPendingPaged(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, logging.Discard())
	ctx := context.Background()

	users := []string{"s1", "s2", "s3"}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, u := range users {
		created := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return created }
		if _, err := svc.Submit(ctx, u, validSubmit()); err != nil {
			t.Fatalf("submit %s: %v", u, err)
		}
	}

	page, err := svc.ListPending(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(page) != 2 || page[0].UserID != "s1" || page[1].UserID != "s2" {
		t.Fatalf("expected oldest-first first page, got %+v", page)
	}

	rest, err := svc.ListPending(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list pending offset: %v", err)
	}
	if len(rest) != 1 || rest[0].UserID != "s3" {
		t.Fatalf("expected single remaining submission, got %+v", rest)
	}

	empty, err := svc.ListPending(ctx, 2, 10)
	if err != nil {
		t.Fatalf("list pending past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(empty))
	}
}
