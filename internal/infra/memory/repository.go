package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/google/uuid"
)

// Repository is an in-memory store.Repository.
// It is safe for concurrent use; data is lost on restart.
type Repository struct {
	mu      sync.RWMutex
	records map[string][]domain.StoredTransaction
	closed  bool
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		records: make(map[string][]domain.StoredTransaction),
	}
}

// SaveTransaction implements store.Repository.
func (r *Repository) SaveTransaction(ctx context.Context, rec domain.StoredTransaction) error {
	if err := store.Validate(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("memory repository is closed")
	}
	r.records[rec.UserID] = append(r.records[rec.UserID], rec)
	return nil
}

// ListTransactions implements store.Repository.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.StoredTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StoredTransaction, len(r.records[userID]))
	copy(out, r.records[userID])
	return out, nil
}

// ListPeriods implements store.Repository.
func (r *Repository) ListPeriods(ctx context.Context, userID string) ([]domain.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[domain.Period]struct{})
	periods := []domain.Period{}
	for _, rec := range r.records[userID] {
		if _, ok := seen[rec.Period]; ok {
			continue
		}
		seen[rec.Period] = struct{}{}
		periods = append(periods, rec.Period)
	}
	domain.SortPeriods(periods)
	return periods, nil
}

// DeleteTransactions implements store.Repository.
func (r *Repository) DeleteTransactions(ctx context.Context, userID string, period domain.Period) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.ContainsFunc(r.records[userID], func(rec domain.StoredTransaction) bool { return rec.Period == period }) {
		return 0, fmt.Errorf("period %s for %s: %w", period, userID, store.ErrNotFound)
	}

	kept := r.records[userID][:0]
	removed := 0
	for _, rec := range r.records[userID] {
		if rec.Period == period {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		delete(r.records, userID)
	} else {
		r.records[userID] = kept
	}
	return removed, nil
}

// Close implements store.Repository.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

var _ store.Repository = (*Repository)(nil)
