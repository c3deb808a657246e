package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Repository persists transactions per user, each tagged with its period.
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=store.go Repository
type Repository interface {
	// SaveTransaction stores one record. Records without an ID get one assigned.
	SaveTransaction(ctx context.Context, rec domain.StoredTransaction) error

	// ListTransactions returns every record owned by userID, in no particular order.
	ListTransactions(ctx context.Context, userID string) ([]domain.StoredTransaction, error)

	// ListPeriods returns the distinct periods userID has data for, ascending.
	ListPeriods(ctx context.Context, userID string) ([]domain.Period, error)

	// DeleteTransactions removes a user's records for one period and reports how many were removed.
	// It returns ErrNotFound when the user has no records for the period.
	DeleteTransactions(ctx context.Context, userID string, period domain.Period) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Validate checks the fields every backend requires.
func Validate(rec domain.StoredTransaction) error {
	var problems []string
	if strings.TrimSpace(rec.UserID) == "" {
		problems = append(problems, "user id is required")
	}
	if _, err := domain.ParsePeriod(string(rec.Period)); err != nil {
		problems = append(problems, err.Error())
	}
	if rec.UploadedAt.IsZero() {
		problems = append(problems, "upload timestamp is required")
	}
	if rec.Value < 0 {
		problems = append(problems, fmt.Sprintf("value %v is negative", rec.Value))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid transaction record: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoadByPeriod reads a user's records and regroups them by period.
func LoadByPeriod(ctx context.Context, repo Repository, userID string) (domain.TransactionsByPeriod, error) {
	records, err := repo.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return domain.GroupByPeriod(records), nil
}
