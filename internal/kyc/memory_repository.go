package kyc

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu          sync.RWMutex
	submissions map[string]Submission
	documents   map[string][]Document // keyed by submission id
	statuses    map[string]SellerStatus
	history     []HistoryEntry
}

// NewMemoryRepository builds an in-memory KYC store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		submissions: make(map[string]Submission),
		documents:   make(map[string][]Document),
		statuses:    make(map[string]SellerStatus),
	}
}

func (r *memoryRepository) CreateSubmission(_ context.Context, sub Submission, docs []Document, status SellerStatus, entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.submissions[sub.ID] = sub
	r.documents[sub.ID] = append([]Document(nil), docs...)
	r.statuses[status.UserID] = status
	r.history = append(r.history, entry)
	return nil
}

func (r *memoryRepository) FinalizeReview(_ context.Context, sub Submission, status SellerStatus, entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.submissions[sub.ID]
	if !ok || existing.Status != StatusPending {
		return ErrSubmissionNotFound
	}
	r.submissions[sub.ID] = sub
	r.statuses[status.UserID] = status
	r.history = append(r.history, entry)
	return nil
}

func (r *memoryRepository) GetSubmission(_ context.Context, id string) (Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.submissions[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *memoryRepository) GetDocuments(_ context.Context, submissionID string) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := append([]Document(nil), r.documents[submissionID]...)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.collect(func(s Submission) bool { return s.UserID == userID })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (r *memoryRepository) ListPending(_ context.Context, limit, offset int) ([]Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.collect(func(s Submission) bool { return s.Status == StatusPending })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	if offset >= len(subs) {
		return nil, nil
	}
	subs = subs[offset:]
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

func (r *memoryRepository) InitSellerStatus(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.statuses[userID]; exists {
		return nil
	}
	r.statuses[userID] = SellerStatus{UserID: userID, Status: StatusUnsubmitted, UpdatedAt: time.Now().UTC()}
	return nil
}

func (r *memoryRepository) GetSellerStatus(_ context.Context, userID string) (SellerStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.statuses[userID]
	if !ok {
		return SellerStatus{}, ErrStatusNotFound
	}
	return st, nil
}

func (r *memoryRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[Status]int{
		StatusUnsubmitted: 0,
		StatusPending:     0,
		StatusVerified:    0,
		StatusRejected:    0,
	}
	for _, st := range r.statuses {
		counts[st.Status]++
	}
	return counts, nil
}

// History returns a copy of the audit log for test assertions.
func (r *memoryRepository) History() []HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]HistoryEntry(nil), r.history...)
}

func (r *memoryRepository) collect(keep func(Submission) bool) []Submission {
	var subs []Submission
	for _, sub := range r.submissions {
		if keep(sub) {
			subs = append(subs, sub)
		}
	}
	return subs
}
