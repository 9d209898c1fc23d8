package otp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoChallenge indicates no challenge row matched the lookup. An expired
// challenge is filtered by FindActive, so callers see the same error for
// "never issued" and "expired and superseded by nothing".
var ErrNoChallenge = errors.New("no otp challenge found")

// IssueInput captures the data required to persist a new challenge.
type IssueInput struct {
	Phone       string
	Email       string
	Code        string
	Purpose     string
	Channel     string
	Payload     *PendingSignup
	TTL         time.Duration
	MaxAttempts int
}

// Ledger persists challenges. Operations are side-effect-only persistence
// calls; business errors (expired, exhausted, wrong code) are decided by the
// caller from the returned state.
type Ledger interface {
	// Issue inserts a new unused challenge expiring TTL from now.
	Issue(ctx context.Context, input IssueInput) (Challenge, error)
	// FindActive returns the most recently issued unused, unexpired
	// challenge for the contact and purpose. Ordering by issuance sequence
	// is strict so a stale code never outranks a fresh one.
	FindActive(ctx context.Context, phone, email, purpose string) (Challenge, error)
	// FindLatestForResend returns the most recent challenge regardless of
	// used or expiry state, so a resend can recover the stored payload.
	FindLatestForResend(ctx context.Context, phone, email, purpose string) (Challenge, error)
	// IncrementAttempts atomically bumps the attempt counter. The bound is
	// enforced by the caller.
	IncrementAttempts(ctx context.Context, id string) error
	// MarkUsed idempotently sets used=true.
	MarkUsed(ctx context.Context, id string) error
}

// PostgresLedger implements Ledger using PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger builds a Postgres-backed challenge ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const challengeColumns = `id, seq, phone, email, code, purpose, channel, payload, attempts, max_attempts, used, expires_at, created_at`

// Issue inserts a new challenge. The seq column is a BIGSERIAL so issuance
// order is unambiguous even under equal timestamps.
func (l *PostgresLedger) Issue(ctx context.Context, input IssueInput) (Challenge, error) {
	now := time.Now().UTC()
	ch := Challenge{
		ID:          uuid.New().String(),
		Phone:       input.Phone,
		Email:       input.Email,
		Code:        input.Code,
		Purpose:     input.Purpose,
		Channel:     input.Channel,
		Payload:     input.Payload,
		MaxAttempts: input.MaxAttempts,
		ExpiresAt:   now.Add(input.TTL),
		CreatedAt:   now,
	}

	var payload []byte
	if ch.Payload != nil {
		var err error
		payload, err = json.Marshal(ch.Payload)
		if err != nil {
			return Challenge{}, err
		}
	}

	row := l.db.QueryRow(ctx, `INSERT INTO otp_challenges
        (id, phone, email, code, purpose, channel, payload, attempts, max_attempts, used, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, false, $9, $10)
        RETURNING seq`,
		ch.ID, ch.Phone, ch.Email, ch.Code, ch.Purpose, ch.Channel, payload, ch.MaxAttempts, ch.ExpiresAt, ch.CreatedAt)
	if err := row.Scan(&ch.Seq); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// FindActive returns the newest unused, unexpired challenge for the contact.
func (l *PostgresLedger) FindActive(ctx context.Context, phone, email, purpose string) (Challenge, error) {
	row := l.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM otp_challenges
        WHERE purpose = $1 AND used = false AND expires_at >= now()
          AND ((phone = $2 AND $2 <> '') OR (email = $3 AND $3 <> ''))
        ORDER BY seq DESC LIMIT 1`, purpose, phone, email)
	return scanChallenge(row)
}

// FindLatestForResend returns the newest challenge without used/expiry filters.
func (l *PostgresLedger) FindLatestForResend(ctx context.Context, phone, email, purpose string) (Challenge, error) {
	row := l.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM otp_challenges
        WHERE purpose = $1 AND ((phone = $2 AND $2 <> '') OR (email = $3 AND $3 <> ''))
        ORDER BY seq DESC LIMIT 1`, purpose, phone, email)
	return scanChallenge(row)
}

// IncrementAttempts bumps the attempt counter atomically.
func (l *PostgresLedger) IncrementAttempts(ctx context.Context, id string) error {
	challengeID, err := uuid.Parse(id)
	if err != nil {
		return ErrNoChallenge
	}
	cmd, err := l.db.Exec(ctx, `UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1`, challengeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNoChallenge
	}
	return nil
}

// MarkUsed sets used=true. Re-marking an already-used challenge is a no-op.
func (l *PostgresLedger) MarkUsed(ctx context.Context, id string) error {
	challengeID, err := uuid.Parse(id)
	if err != nil {
		return ErrNoChallenge
	}
	_, err = l.db.Exec(ctx, `UPDATE otp_challenges SET used = true WHERE id = $1`, challengeID)
	return err
}

func scanChallenge(row pgx.Row) (Challenge, error) {
	var (
		id        uuid.UUID
		payload   []byte
		expiresAt time.Time
		createdAt time.Time
		ch        Challenge
	)
	if err := row.Scan(&id, &ch.Seq, &ch.Phone, &ch.Email, &ch.Code, &ch.Purpose, &ch.Channel,
		&payload, &ch.Attempts, &ch.MaxAttempts, &ch.Used, &expiresAt, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, ErrNoChallenge
		}
		return Challenge{}, err
	}
	ch.ID = id.String()
	ch.ExpiresAt = expiresAt.UTC()
	ch.CreatedAt = createdAt.UTC()
	if len(payload) > 0 {
		var pending PendingSignup
		if err := json.Unmarshal(payload, &pending); err != nil {
			return Challenge{}, err
		}
		ch.Payload = &pending
	}
	return ch, nil
}
