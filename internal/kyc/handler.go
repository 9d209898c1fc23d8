package kyc

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mandi-market/mandi/internal/web"
)

// Handler exposes seller-facing and admin-facing KYC endpoints.
type Handler struct {
	service  *Service
	reviewer *Reviewer
}

// NewHandler constructs a KYC HTTP handler.
func NewHandler(service *Service, reviewer *Reviewer) *Handler {
	return &Handler{service: service, reviewer: reviewer}
}

type documentRequest struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type submitRequest struct {
	LegalName        string            `json:"legal_name"`
	GovernmentIDType string            `json:"government_id_type"`
	GovernmentID     string            `json:"government_id"`
	TaxID            string            `json:"tax_id"`
	AddressLine1     string            `json:"address_line1"`
	AddressLine2     string            `json:"address_line2"`
	City             string            `json:"city"`
	State            string            `json:"state"`
	Pincode          string            `json:"pincode"`
	BusinessType     string            `json:"business_type"`
	BusinessName     string            `json:"business_name"`
	Documents        []documentRequest `json:"documents"`
}

// Submit records a new KYC submission for the authenticated seller.
func (h *Handler) Submit(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}

	input := SubmitInput{
		LegalName:        req.LegalName,
		GovernmentIDType: GovernmentIDType(req.GovernmentIDType),
		GovernmentID:     req.GovernmentID,
		TaxID:            req.TaxID,
		AddressLine1:     req.AddressLine1,
		AddressLine2:     req.AddressLine2,
		City:             req.City,
		State:            req.State,
		Pincode:          req.Pincode,
		BusinessType:     BusinessType(req.BusinessType),
		BusinessName:     req.BusinessName,
	}
	for _, d := range req.Documents {
		input.Documents = append(input.Documents, DocumentInput{
			Type:     DocumentType(d.Type),
			Name:     d.Name,
			URL:      d.URL,
			Size:     d.Size,
			MimeType: d.MimeType,
		})
	}

	submissionID, err := h.service.Submit(c.UserContext(), userID, input)
	if err != nil {
		return h.fail(c, err)
	}
	return web.OK(c, http.StatusCreated, fiber.Map{"submission_id": submissionID, "status": StatusPending})
}

// Status returns the seller's KYC summary.
func (h *Handler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	status, err := h.service.SellerStatusFor(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return web.OK(c, http.StatusOK, fiber.Map{"status": StatusUnsubmitted})
		}
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
	return web.OK(c, http.StatusOK, sellerStatusView(status))
}

// ListMine returns the seller's submissions, newest first.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	p, err := web.ParsePagination(c)
	if err != nil {
		return err
	}
	subs, err := h.service.ListByUser(c.UserContext(), userID, p.Limit)
	if err != nil {
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
	return web.OK(c, http.StatusOK, fiber.Map{"submissions": submissionViews(subs)})
}

// Pending lists pending submissions for admin review.
func (h *Handler) Pending(c *fiber.Ctx) error {
	p, err := web.ParsePagination(c)
	if err != nil {
		return err
	}
	subs, err := h.service.ListPending(c.UserContext(), p.Limit, p.Offset())
	if err != nil {
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
	return web.OK(c, http.StatusOK, fiber.Map{
		"page":        p.Page,
		"limit":       p.Limit,
		"submissions": submissionViews(subs),
	})
}

// Get returns one submission joined with its documents.
func (h *Handler) Get(c *fiber.Ctx) error {
	joined, err := h.service.GetSubmissionWithDocuments(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	docs := make([]fiber.Map, 0, len(joined.Documents))
	for _, d := range joined.Documents {
		docs = append(docs, fiber.Map{
			"id":          d.ID,
			"type":        d.Type,
			"name":        d.Name,
			"url":         d.URL,
			"size":        d.Size,
			"mime_type":   d.MimeType,
			"verified":    d.Verified,
			"uploaded_at": d.UploadedAt,
		})
	}
	view := submissionView(joined.Submission)
	view["documents"] = docs
	return web.OK(c, http.StatusOK, view)
}

type reviewRequest struct {
	Action          string `json:"action"`
	RejectionReason string `json:"rejection_reason"`
	AdminNotes      string `json:"admin_notes"`
}

// Review applies an admin decision to a pending submission.
func (h *Handler) Review(c *fiber.Ctx) error {
	adminID, _ := c.Locals("user_id").(string)

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, "invalid request body")
	}

	result, err := h.reviewer.Review(c.UserContext(), ReviewInput{
		AdminID:         adminID,
		SubmissionID:    c.Params("id"),
		Action:          req.Action,
		RejectionReason: req.RejectionReason,
		AdminNotes:      req.AdminNotes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return web.OK(c, http.StatusOK, fiber.Map{"submission_id": result.SubmissionID, "status": result.Status})
}

// Stats returns seller status counts for the admin dashboard.
func (h *Handler) Stats(c *fiber.Ctx) error {
	counts, err := h.service.Stats(c.UserContext())
	if err != nil {
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
	return web.OK(c, http.StatusOK, fiber.Map{
		"unsubmitted": counts[StatusUnsubmitted],
		"pending":     counts[StatusPending],
		"verified":    counts[StatusVerified],
		"rejected":    counts[StatusRejected],
	})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return web.Fail(c, http.StatusBadRequest, web.CodeValidation, verr.Error())
	case errors.Is(err, ErrAlreadyVerified):
		return web.Fail(c, http.StatusConflict, web.CodeConflict, "kyc is already verified, contact support for changes")
	case errors.Is(err, ErrAlreadyReviewed):
		return web.Fail(c, http.StatusConflict, web.CodeAlreadyReviewed, "submission has already been reviewed")
	case errors.Is(err, ErrSubmissionNotFound):
		return web.Fail(c, http.StatusNotFound, web.CodeNotFound, "submission not found")
	default:
		return web.Fail(c, http.StatusInternalServerError, web.CodeInternal, "internal server error")
	}
}

func sellerStatusView(st SellerStatus) fiber.Map {
	view := fiber.Map{
		"status":     st.Status,
		"updated_at": st.UpdatedAt,
	}
	if st.CurrentSubmissionID != "" {
		view["current_submission_id"] = st.CurrentSubmissionID
	}
	if st.VerifiedAt != nil {
		view["verified_at"] = st.VerifiedAt
	}
	if st.RejectionReason != "" {
		view["rejection_reason"] = st.RejectionReason
	}
	return view
}

func submissionViews(subs []Submission) []fiber.Map {
	views := make([]fiber.Map, 0, len(subs))
	for _, sub := range subs {
		views = append(views, submissionView(sub))
	}
	return views
}

func submissionView(sub Submission) fiber.Map {
	view := fiber.Map{
		"id":                 sub.ID,
		"user_id":            sub.UserID,
		"legal_name":         sub.LegalName,
		"government_id_type": sub.GovernmentIDType,
		"business_type":      sub.BusinessType,
		"status":             sub.Status,
		"created_at":         sub.CreatedAt.Format(time.RFC3339),
	}
	if sub.BusinessName != "" {
		view["business_name"] = sub.BusinessName
	}
	if sub.ReviewedAt != nil {
		view["reviewed_at"] = sub.ReviewedAt.Format(time.RFC3339)
		view["reviewed_by"] = sub.ReviewedBy
	}
	if sub.RejectionReason != "" {
		view["rejection_reason"] = sub.RejectionReason
	}
	return view
}
