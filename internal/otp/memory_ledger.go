package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLedger struct {
	mu         sync.RWMutex
	seq        int64
	challenges []Challenge
}

// NewMemoryLedger builds an in-memory challenge ledger for testing.
func NewMemoryLedger() Ledger {
	return &memoryLedger{}
}

func (l *memoryLedger) Issue(_ context.Context, input IssueInput) (Challenge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	l.seq++
	ch := Challenge{
		ID:          uuid.New().String(),
		Seq:         l.seq,
		Phone:       input.Phone,
		Email:       input.Email,
		Code:        input.Code,
		Purpose:     input.Purpose,
		Channel:     input.Channel,
		Payload:     clonePayload(input.Payload),
		MaxAttempts: input.MaxAttempts,
		ExpiresAt:   now.Add(input.TTL),
		CreatedAt:   now,
	}
	l.challenges = append(l.challenges, ch)
	return ch, nil
}

func (l *memoryLedger) FindActive(_ context.Context, phone, email, purpose string) (Challenge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now().UTC()
	for i := len(l.challenges) - 1; i >= 0; i-- {
		ch := l.challenges[i]
		if ch.Purpose != purpose || ch.Used || ch.Expired(now) {
			continue
		}
		if matchesContact(ch, phone, email) {
			return cloneChallenge(ch), nil
		}
	}
	return Challenge{}, ErrNoChallenge
}

func (l *memoryLedger) FindLatestForResend(_ context.Context, phone, email, purpose string) (Challenge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.challenges) - 1; i >= 0; i-- {
		ch := l.challenges[i]
		if ch.Purpose == purpose && matchesContact(ch, phone, email) {
			return cloneChallenge(ch), nil
		}
	}
	return Challenge{}, ErrNoChallenge
}

func (l *memoryLedger) IncrementAttempts(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.challenges {
		if l.challenges[i].ID == id {
			l.challenges[i].Attempts++
			return nil
		}
	}
	return ErrNoChallenge
}

func (l *memoryLedger) MarkUsed(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.challenges {
		if l.challenges[i].ID == id {
			l.challenges[i].Used = true
			return nil
		}
	}
	return ErrNoChallenge
}

func matchesContact(ch Challenge, phone, email string) bool {
	if phone != "" && ch.Phone == phone {
		return true
	}
	if email != "" && ch.Email == email {
		return true
	}
	return false
}

func clonePayload(p *PendingSignup) *PendingSignup {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PasswordHash = append([]byte(nil), p.PasswordHash...)
	return &cp
}

func cloneChallenge(ch Challenge) Challenge {
	ch.Payload = clonePayload(ch.Payload)
	return ch
}
