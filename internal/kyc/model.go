package kyc

import "time"

// Status is the closed set of KYC states. Submissions only ever hold
// pending, verified or rejected; unsubmitted exists on the seller summary
// row before any submission is made.
type Status string

const (
	StatusUnsubmitted Status = "unsubmitted"
	StatusPending     Status = "pending"
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
)

// Valid reports whether the status is a member of the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusUnsubmitted, StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition happens without a new
// submission.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransition is the exhaustive transition function for seller status. A
// new submission moves unsubmitted/rejected/pending to pending; a review
// moves pending to a terminal state. Everything else is illegal, including
// verified back to pending without an out-of-band reset.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusUnsubmitted, StatusRejected:
		return to == StatusPending
	case StatusPending:
		return to == StatusPending || to == StatusVerified || to == StatusRejected
	case StatusVerified:
		return false
	default:
		return false
	}
}

// GovernmentIDType enumerates accepted identity document kinds.
type GovernmentIDType string

const (
	IDAadhaar        GovernmentIDType = "aadhaar"
	IDPan            GovernmentIDType = "pan"
	IDVoterID        GovernmentIDType = "voter_id"
	IDDrivingLicense GovernmentIDType = "driving_license"
	IDPassport       GovernmentIDType = "passport"
)

// Valid reports whether the id type is a member of the closed set.
func (t GovernmentIDType) Valid() bool {
	switch t {
	case IDAadhaar, IDPan, IDVoterID, IDDrivingLicense, IDPassport:
		return true
	}
	return false
}

// BusinessType enumerates accepted business structures.
type BusinessType string

const (
	BusinessIndividual    BusinessType = "individual"
	BusinessPartnership   BusinessType = "partnership"
	BusinessPrivateLtd    BusinessType = "private_limited"
	BusinessPublicLtd     BusinessType = "public_limited"
	BusinessLLP           BusinessType = "llp"
)

// Valid reports whether the business type is a member of the closed set.
func (t BusinessType) Valid() bool {
	switch t {
	case BusinessIndividual, BusinessPartnership, BusinessPrivateLtd, BusinessPublicLtd, BusinessLLP:
		return true
	}
	return false
}

// DocumentType enumerates the document slots a submission can attach.
type DocumentType string

const (
	DocGovernmentIDFront     DocumentType = "government_id_front"
	DocGovernmentIDBack      DocumentType = "government_id_back"
	DocAddressProof          DocumentType = "address_proof"
	DocBusinessRegistration  DocumentType = "business_registration"
	DocTaxCertificate        DocumentType = "tax_certificate"
	DocBankStatement         DocumentType = "bank_statement"
)

// Valid reports whether the document type is a member of the closed set.
func (t DocumentType) Valid() bool {
	switch t {
	case DocGovernmentIDFront, DocGovernmentIDBack, DocAddressProof,
		DocBusinessRegistration, DocTaxCertificate, DocBankStatement:
		return true
	}
	return false
}

// Submission is one identity/business verification record. Immutable once
// reviewed; a user accumulates submissions across resubmission cycles.
type Submission struct {
	ID               string
	UserID           string
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
	Status           Status
	ReviewedBy       string
	ReviewedAt       *time.Time
	RejectionReason  string
	AdminNotes       string
	CreatedAt        time.Time
}

// Document is a file attached to a submission, optionally verified
// individually by an admin later.
type Document struct {
	ID                string
	SubmissionID      string
	UserID            string
	Type              DocumentType
	Name              string
	URL               string
	Size              int64
	MimeType          string
	Verified          bool
	VerificationNotes string
	UploadedAt        time.Time
}

// SellerStatus is the per-user summary row consulted by gating logic. Its
// status always equals the status of the submission it points to.
type SellerStatus struct {
	UserID              string
	Status              Status
	CurrentSubmissionID string
	VerifiedAt          *time.Time
	VerifiedBy          string
	RejectionReason     string
	UpdatedAt           time.Time
}

// HistoryEntry is an append-only audit row. Never mutated or deleted.
type HistoryEntry struct {
	ID           string
	UserID       string
	SubmissionID string
	FromStatus   Status
	ToStatus     Status
	ActorID      string
	Reason       string
	Notes        string
	CreatedAt    time.Time
}
