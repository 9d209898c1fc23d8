package kyc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed KYC repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const submissionColumns = `id, user_id, legal_name, government_id_type, government_id, tax_id,
    address_line1, address_line2, city, state, pincode, business_type, business_name,
    status, reviewed_by, reviewed_at, rejection_reason, admin_notes, created_at`

// CreateSubmission inserts the submission, its documents, the summary update
// and the history entry in one transaction.
func (r *PostgresRepository) CreateSubmission(ctx context.Context, sub Submission, docs []Document, status SellerStatus, entry HistoryEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO kyc_submissions
            (id, user_id, legal_name, government_id_type, government_id, tax_id,
             address_line1, address_line2, city, state, pincode, business_type, business_name,
             status, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			sub.ID, sub.UserID, sub.LegalName, sub.GovernmentIDType, sub.GovernmentID, sub.TaxID,
			sub.AddressLine1, sub.AddressLine2, sub.City, sub.State, sub.Pincode, sub.BusinessType, sub.BusinessName,
			sub.Status, sub.CreatedAt.UTC()); err != nil {
			return err
		}

		for _, doc := range docs {
			if _, err := tx.Exec(ctx, `INSERT INTO kyc_documents
                (id, submission_id, user_id, doc_type, name, url, size, mime_type, verified, verification_notes, uploaded_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				doc.ID, doc.SubmissionID, doc.UserID, doc.Type, doc.Name, doc.URL, doc.Size,
				doc.MimeType, doc.Verified, doc.VerificationNotes, doc.UploadedAt.UTC()); err != nil {
				return err
			}
		}

		if err := upsertSellerStatus(ctx, tx, status); err != nil {
			return err
		}
		return appendHistory(ctx, tx, entry)
	})
}

// FinalizeReview persists the review outcome atomically.
func (r *PostgresRepository) FinalizeReview(ctx context.Context, sub Submission, status SellerStatus, entry HistoryEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `UPDATE kyc_submissions
            SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4, admin_notes = $5
            WHERE id = $6 AND status = 'pending'`,
			sub.Status, sub.ReviewedBy, sub.ReviewedAt, sub.RejectionReason, sub.AdminNotes, sub.ID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			// Lost a race with a concurrent review of the same submission.
			return ErrSubmissionNotFound
		}

		if err := upsertSellerStatus(ctx, tx, status); err != nil {
			return err
		}
		return appendHistory(ctx, tx, entry)
	})
}

// GetSubmission fetches a submission by id.
func (r *PostgresRepository) GetSubmission(ctx context.Context, id string) (Submission, error) {
	submissionID, err := uuid.Parse(id)
	if err != nil {
		return Submission{}, ErrSubmissionNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions WHERE id = $1`, submissionID)
	return scanSubmission(row)
}

// GetDocuments returns the submission's documents ordered by upload time.
func (r *PostgresRepository) GetDocuments(ctx context.Context, submissionID string) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT id, submission_id, user_id, doc_type, name, url, size, mime_type,
        verified, verification_notes, uploaded_at
        FROM kyc_documents WHERE submission_id = $1 ORDER BY uploaded_at, id`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.SubmissionID, &doc.UserID, &doc.Type, &doc.Name, &doc.URL,
			&doc.Size, &doc.MimeType, &doc.Verified, &doc.VerificationNotes, &doc.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListByUser returns a user's submissions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Submission, error) {
	rows, err := r.db.Query(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions
        WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// ListPending returns pending submissions in submission order.
func (r *PostgresRepository) ListPending(ctx context.Context, limit, offset int) ([]Submission, error) {
	rows, err := r.db.Query(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions
        WHERE status = 'pending' ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// InitSellerStatus creates the unsubmitted summary row for a new seller.
func (r *PostgresRepository) InitSellerStatus(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO seller_kyc_status (user_id, status, updated_at)
        VALUES ($1, 'unsubmitted', now()) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// GetSellerStatus fetches the summary row for a user.
func (r *PostgresRepository) GetSellerStatus(ctx context.Context, userID string) (SellerStatus, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id, status, current_submission_id, verified_at, verified_by,
        rejection_reason, updated_at FROM seller_kyc_status WHERE user_id = $1`, userID)

	var (
		st           SellerStatus
		submissionID *string
		verifiedBy   *string
	)
	if err := row.Scan(&st.UserID, &st.Status, &submissionID, &st.VerifiedAt, &verifiedBy,
		&st.RejectionReason, &st.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SellerStatus{}, ErrStatusNotFound
		}
		return SellerStatus{}, err
	}
	if submissionID != nil {
		st.CurrentSubmissionID = *submissionID
	}
	if verifiedBy != nil {
		st.VerifiedBy = *verifiedBy
	}
	return st, nil
}

// CountByStatus aggregates seller status rows grouped by status.
func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM seller_kyc_status GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{
		StatusUnsubmitted: 0,
		StatusPending:     0,
		StatusVerified:    0,
		StatusRejected:    0,
	}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func upsertSellerStatus(ctx context.Context, tx pgx.Tx, status SellerStatus) error {
	_, err := tx.Exec(ctx, `INSERT INTO seller_kyc_status
        (user_id, status, current_submission_id, verified_at, verified_by, rejection_reason, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7)
        ON CONFLICT (user_id) DO UPDATE SET
            status = EXCLUDED.status,
            current_submission_id = EXCLUDED.current_submission_id,
            verified_at = EXCLUDED.verified_at,
            verified_by = EXCLUDED.verified_by,
            rejection_reason = EXCLUDED.rejection_reason,
            updated_at = EXCLUDED.updated_at`,
		status.UserID, status.Status, status.CurrentSubmissionID, status.VerifiedAt,
		status.VerifiedBy, status.RejectionReason, status.UpdatedAt.UTC())
	return err
}

func appendHistory(ctx context.Context, tx pgx.Tx, entry HistoryEntry) error {
	_, err := tx.Exec(ctx, `INSERT INTO kyc_status_history
        (id, user_id, submission_id, from_status, to_status, actor_id, reason, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserID, entry.SubmissionID, entry.FromStatus, entry.ToStatus,
		entry.ActorID, entry.Reason, entry.Notes, entry.CreatedAt.UTC())
	return err
}

func scanSubmission(row pgx.Row) (Submission, error) {
	var (
		sub        Submission
		reviewedBy *string
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.LegalName, &sub.GovernmentIDType, &sub.GovernmentID,
		&sub.TaxID, &sub.AddressLine1, &sub.AddressLine2, &sub.City, &sub.State, &sub.Pincode,
		&sub.BusinessType, &sub.BusinessName, &sub.Status, &reviewedBy, &sub.ReviewedAt,
		&sub.RejectionReason, &sub.AdminNotes, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, err
	}
	if reviewedBy != nil {
		sub.ReviewedBy = *reviewedBy
	}
	return sub, nil
}

func collectSubmissions(rows pgx.Rows) ([]Submission, error) {
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
