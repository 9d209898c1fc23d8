package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func issueFor(t *testing.T, ledger Ledger, phone, code string, ttl time.Duration) Challenge {
	t.Helper()
	ch, err := ledger.Issue(context.Background(), IssueInput{
		Phone:       phone,
		Code:        code,
		Purpose:     PurposeSignup,
		Channel:     ChannelSms,
		TTL:         ttl,
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return ch
}

func TestFindActiveMostRecentWins(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	first := issueFor(t, ledger, "+919900112233", "111111", time.Minute)
	second := issueFor(t, ledger, "+919900112233", "222222", time.Minute)

	if second.Seq <= first.Seq {
		t.Fatalf("expected strictly increasing seq, got %d then %d", first.Seq, second.Seq)
	}

	active, err := ledger.FindActive(ctx, "+919900112233", "", PurposeSignup)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("expected latest challenge %s, got %s", second.ID, active.ID)
	}
	if active.Code != "222222" {
		t.Fatalf("expected code 222222, got %s", active.Code)
	}
}

func TestFindActiveFiltersExpiredAndUsed(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	issueFor(t, ledger, "+919900112233", "111111", -time.Second)
	if _, err := ledger.FindActive(ctx, "+919900112233", "", PurposeSignup); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge for expired challenge, got %v", err)
	}

	used := issueFor(t, ledger, "+919900112233", "222222", time.Minute)
	if err := ledger.MarkUsed(ctx, used.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if _, err := ledger.FindActive(ctx, "+919900112233", "", PurposeSignup); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge for used challenge, got %v", err)
	}
}

func TestFindActiveMatchesEitherContact(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if _, err := ledger.Issue(ctx, IssueInput{
		Email:       "asha@example.com",
		Code:        "333333",
		Purpose:     PurposeSignup,
		Channel:     ChannelEmail,
		TTL:         time.Minute,
		MaxAttempts: 5,
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ledger.FindActive(ctx, "", "asha@example.com", PurposeSignup); err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if _, err := ledger.FindActive(ctx, "+910000000000", "", PurposeSignup); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge for unknown phone, got %v", err)
	}
}

func TestFindLatestForResendIgnoresFilters(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	payload := &PendingSignup{Name: "Asha", Phone: "+919900112233", Role: "seller"}
	ch, err := ledger.Issue(ctx, IssueInput{
		Phone:       "+919900112233",
		Code:        "444444",
		Purpose:     PurposeSignup,
		Channel:     ChannelSms,
		Payload:     payload,
		TTL:         -time.Second,
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ledger.MarkUsed(ctx, ch.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	latest, err := ledger.FindLatestForResend(ctx, "+919900112233", "", PurposeSignup)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest.Payload == nil || latest.Payload.Name != "Asha" {
		t.Fatalf("expected payload to survive expiry and use, got %+v", latest.Payload)
	}
}

func TestIncrementAttempts(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	ch := issueFor(t, ledger, "+919900112233", "555555", time.Minute)
	for i := 0; i < 3; i++ {
		if err := ledger.IncrementAttempts(ctx, ch.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	active, err := ledger.FindActive(ctx, "+919900112233", "", PurposeSignup)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", active.Attempts)
	}

	if err := ledger.IncrementAttempts(ctx, "missing"); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge, got %v", err)
	}
}

func TestMarkUsedIdempotent(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	ch := issueFor(t, ledger, "+919900112233", "666666", time.Minute)
	if err := ledger.MarkUsed(ctx, ch.ID); err != nil {
		t.Fatalf("first mark used: %v", err)
	}
	if err := ledger.MarkUsed(ctx, ch.ID); err != nil {
		t.Fatalf("second mark used should be a no-op, got %v", err)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("expected %d digits, got %q", CodeLength, code)
		}
		if code[0] == '0' {
			t.Fatalf("expected leading digit in 1-9, got %q", code)
		}
	}
}
