package signup

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mandi-market/mandi/internal/identity"
	"github.com/mandi-market/mandi/internal/kyc"
	"github.com/mandi-market/mandi/internal/metrics"
	"github.com/mandi-market/mandi/internal/notification"
	"github.com/mandi-market/mandi/internal/otp"
)

// Business errors of the signup state machine. All OTP-flow failures
// instruct the caller to resend; none are retried server-side.
var (
	ErrPhoneRegistered   = errors.New("phone already registered")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrNoActiveChallenge = errors.New("no active otp challenge, request a new code")
	ErrAttemptsExhausted = errors.New("too many incorrect attempts, request a new code")
	ErrCodeExpired       = errors.New("otp code expired, request a new code")
	ErrIncorrectCode     = errors.New("incorrect otp code")
	ErrNoPendingSignup   = errors.New("no pending signup for this contact")
	ErrEmailConflict     = errors.New("email was claimed by another account")
	ErrDeliveryFailed    = errors.New("failed to dispatch otp code")
)

// ValidationError names the first missing or invalid field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Policy bundles the knobs of the OTP flow.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
	BcryptCost  int
}

// Service orchestrates the OTP-gated signup flow: it issues challenges
// carrying the pending user record and materializes the account exactly once
// at verify time.
type Service struct {
	ledger   otp.Ledger
	users    identity.Repository
	kycRepo  kyc.Repository
	notifier notification.Notifier
	logger   *slog.Logger
	policy   Policy

	// Injected for deterministic tests.
	generateCode func() (string, error)
	now          func() time.Time
}

// NewService builds a signup orchestrator.
func NewService(ledger otp.Ledger, users identity.Repository, kycRepo kyc.Repository, notifier notification.Notifier, policy Policy, logger *slog.Logger) *Service {
	if policy.TTL <= 0 {
		policy.TTL = 120 * time.Second
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	if policy.BcryptCost < bcrypt.MinCost {
		policy.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		ledger:       ledger,
		users:        users,
		kycRepo:      kycRepo,
		notifier:     notifier,
		logger:       logger,
		policy:       policy,
		generateCode: otp.GenerateCode,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StartInput carries the signup form.
type StartInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// ChallengeReceipt tells the caller where the code went and for how long it
// is valid. The code itself is never returned.
type ChallengeReceipt struct {
	Channel     string
	Destination string
	ExpiresIn   time.Duration
}

// Start validates the signup form, issues an OTP challenge carrying the
// pending user record, and dispatches the code out-of-band. The challenge is
// persisted before dispatch is attempted, so a code that failed to send
// visibly is still verifiable.
func (s *Service) Start(ctx context.Context, input StartInput) (ChallengeReceipt, error) {
	input.Email = identity.NormalizeEmail(input.Email)
	input.Phone = identity.NormalizePhone(input.Phone)

	if err := validateStartInput(input); err != nil {
		return ChallengeReceipt{}, err
	}

	if _, err := s.users.FindByPhone(ctx, input.Phone); err == nil {
		return ChallengeReceipt{}, ErrPhoneRegistered
	} else if !errors.Is(err, identity.ErrNotFound) {
		return ChallengeReceipt{}, fmt.Errorf("check phone: %w", err)
	}
	if input.Email != "" {
		if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
			return ChallengeReceipt{}, ErrEmailRegistered
		} else if !errors.Is(err, identity.ErrNotFound) {
			return ChallengeReceipt{}, fmt.Errorf("check email: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.policy.BcryptCost)
	if err != nil {
		return ChallengeReceipt{}, fmt.Errorf("hash password: %w", err)
	}

	payload := &otp.PendingSignup{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         identity.RoleSeller,
	}

	receipt, err := s.issueAndDispatch(ctx, input.Phone, input.Email, payload)
	if err != nil {
		return ChallengeReceipt{}, err
	}

	metrics.SignupStarted.Inc()
	s.logger.Info("signup started",
		slog.String("channel", receipt.Channel),
		slog.String("destination", receipt.Destination),
	)
	return receipt, nil
}

// VerifyInput identifies the contact and carries the submitted code.
type VerifyInput struct {
	Email string
	Phone string
	Code  string
}

// Verify checks the submitted code against the most recent active challenge
// and creates the user account exactly once on success.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (string, error) {
	input.Email = identity.NormalizeEmail(input.Email)
	input.Phone = identity.NormalizePhone(input.Phone)

	if input.Phone == "" && input.Email == "" {
		return "", &ValidationError{Field: "phone", Reason: "phone or email is required"}
	}
	if input.Code == "" {
		return "", &ValidationError{Field: "code", Reason: "is required"}
	}

	ch, err := s.ledger.FindActive(ctx, input.Phone, input.Email, otp.PurposeSignup)
	if err != nil {
		if errors.Is(err, otp.ErrNoChallenge) {
			metrics.OtpFailures.WithLabelValues("no_active_challenge").Inc()
			return "", ErrNoActiveChallenge
		}
		return "", fmt.Errorf("find active challenge: %w", err)
	}

	// The bound is checked before the code so a flood of wrong guesses locks
	// out at exactly maxAttempts, not one past it.
	if ch.Attempts >= ch.MaxAttempts {
		metrics.OtpFailures.WithLabelValues("attempts_exhausted").Inc()
		return "", ErrAttemptsExhausted
	}
	if ch.Expired(s.now()) {
		metrics.OtpFailures.WithLabelValues("expired").Inc()
		return "", ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(input.Code)) != 1 {
		if err := s.ledger.IncrementAttempts(ctx, ch.ID); err != nil {
			return "", fmt.Errorf("increment attempts: %w", err)
		}
		metrics.OtpFailures.WithLabelValues("incorrect_code").Inc()
		return "", ErrIncorrectCode
	}

	if ch.Payload == nil {
		// Resend was called without an initial signup, so there is no user
		// record to promote.
		return "", ErrNoPendingSignup
	}
	pending := *ch.Payload

	// Another request may have created the account between issuance and
	// verification. The desired end state already holds, so consume the
	// challenge and succeed idempotently.
	if existing, err := s.users.FindByPhone(ctx, pending.Phone); err == nil {
		if err := s.ledger.MarkUsed(ctx, ch.ID); err != nil {
			return "", fmt.Errorf("mark challenge used: %w", err)
		}
		return existing.ID, nil
	} else if !errors.Is(err, identity.ErrNotFound) {
		return "", fmt.Errorf("check phone: %w", err)
	}
	if pending.Email != "" {
		if _, err := s.users.FindByEmail(ctx, pending.Email); err == nil {
			// The email now belongs to a different identity; this is a real
			// conflict, not an idempotent success.
			return "", ErrEmailConflict
		} else if !errors.Is(err, identity.ErrNotFound) {
			return "", fmt.Errorf("check email: %w", err)
		}
	}

	user := identity.User{
		ID:           uuid.New().String(),
		Name:         pending.Name,
		Email:        pending.Email,
		Phone:        pending.Phone,
		PasswordHash: pending.PasswordHash,
		Role:         pending.Role,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := s.ledger.MarkUsed(ctx, ch.ID); err != nil {
		return "", fmt.Errorf("mark challenge used: %w", err)
	}

	// Seller accounts always start unverified.
	if user.Role == identity.RoleSeller {
		if err := s.kycRepo.InitSellerStatus(ctx, user.ID); err != nil {
			return "", fmt.Errorf("init seller kyc status: %w", err)
		}
	}

	metrics.SignupCompleted.Inc()
	s.logger.Info("signup verified", slog.String("user_id", user.ID))
	return user.ID, nil
}

// ResendInput identifies the contact to reissue a code for.
type ResendInput struct {
	Email string
	Phone string
}

// Resend issues a fresh challenge preserving the previously stored payload,
// if any, so an expired code does not force the user to re-enter the form.
// The prior challenge is not invalidated; strict issuance ordering makes it
// irrelevant.
func (s *Service) Resend(ctx context.Context, input ResendInput) (ChallengeReceipt, error) {
	email := identity.NormalizeEmail(input.Email)
	phone := identity.NormalizePhone(input.Phone)

	if phone == "" && email == "" {
		return ChallengeReceipt{}, &ValidationError{Field: "phone", Reason: "phone or email is required"}
	}

	var payload *otp.PendingSignup
	if prior, err := s.ledger.FindLatestForResend(ctx, phone, email, otp.PurposeSignup); err == nil {
		payload = prior.Payload
	} else if !errors.Is(err, otp.ErrNoChallenge) {
		return ChallengeReceipt{}, fmt.Errorf("find latest challenge: %w", err)
	}

	receipt, err := s.issueAndDispatch(ctx, phone, email, payload)
	if err != nil {
		return ChallengeReceipt{}, err
	}

	metrics.OtpResent.Inc()
	s.logger.Info("otp resent",
		slog.String("channel", receipt.Channel),
		slog.String("destination", receipt.Destination),
		slog.Bool("payload_recovered", payload != nil),
	)
	return receipt, nil
}

func (s *Service) issueAndDispatch(ctx context.Context, phone, email string, payload *otp.PendingSignup) (ChallengeReceipt, error) {
	code, err := s.generateCode()
	if err != nil {
		return ChallengeReceipt{}, err
	}

	channel := otp.ChannelSms
	if phone == "" {
		channel = otp.ChannelEmail
	}

	if _, err := s.ledger.Issue(ctx, otp.IssueInput{
		Phone:       phone,
		Email:       email,
		Code:        code,
		Purpose:     otp.PurposeSignup,
		Channel:     channel,
		Payload:     payload,
		TTL:         s.policy.TTL,
		MaxAttempts: s.policy.MaxAttempts,
	}); err != nil {
		return ChallengeReceipt{}, fmt.Errorf("issue challenge: %w", err)
	}

	var dispatchErr error
	var destination string
	if channel == otp.ChannelSms {
		destination = maskPhone(phone)
		dispatchErr = notification.SendOtpSms(ctx, s.notifier, phone, code)
	} else {
		destination = maskEmail(email)
		dispatchErr = notification.SendOtpEmail(ctx, s.notifier, email, code)
	}
	if dispatchErr != nil {
		s.logger.Error("otp dispatch failed", slog.String("channel", channel), slog.Any("error", dispatchErr))
		return ChallengeReceipt{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, dispatchErr)
	}

	return ChallengeReceipt{Channel: channel, Destination: destination, ExpiresIn: s.policy.TTL}, nil
}

func validateStartInput(input StartInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if input.Phone == "" && input.Email == "" {
		return &ValidationError{Field: "phone", Reason: "phone or email is required"}
	}
	if input.Email != "" && !strings.Contains(input.Email, "@") {
		return &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	if len(input.Password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
