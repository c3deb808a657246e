package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/google/uuid"
)

// Repository is the store.Repository implementation backed by BigQuery.
// It holds a shared client to avoid creating a new connection for each operation.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewRepository creates a client for projectID and makes sure the transactions table exists.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}

	repo := NewRepositoryWithClient(client, Dataset{ProjectID: projectID, DatasetID: datasetID})
	if err := EnsureTableWithClient(ctx, client, repo.ds); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRepository: %w", err)
	}
	return repo, nil
}

// NewRepositoryWithClient wraps an existing client. The table is assumed to exist.
func NewRepositoryWithClient(client *bigquery.Client, ds Dataset) *Repository {
	return &Repository{client: client, ds: ds}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveTransaction implements store.Repository.
func (r *Repository) SaveTransaction(ctx context.Context, rec domain.StoredTransaction) error {
	if err := store.Validate(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return InsertTransactionWithClient(ctx, r.client, r.ds, NewTransactionRow(rec))
}

// ListTransactions implements store.Repository.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.StoredTransaction, error) {
	rows, err := QueryTransactionsByUserWithClient(ctx, r.client, r.ds, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

// ListPeriods implements store.Repository.
func (r *Repository) ListPeriods(ctx context.Context, userID string) ([]domain.Period, error) {
	raw, err := ListPeriodsWithClient(ctx, r.client, r.ds, userID)
	if err != nil {
		return nil, err
	}
	periods := make([]domain.Period, 0, len(raw))
	for _, p := range raw {
		periods = append(periods, domain.Period(p))
	}
	return periods, nil
}

// DeleteTransactions implements store.Repository.
func (r *Repository) DeleteTransactions(ctx context.Context, userID string, period domain.Period) (int, error) {
	return DeleteTransactionsWithClient(ctx, r.client, r.ds, userID, string(period))
}

var _ store.Repository = (*Repository)(nil)
