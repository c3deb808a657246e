package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// Repository is a store.Repository backed by a SQLite file.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository opens (creating if needed) the database at dbPath and migrates it.
func NewRepository(dbPath string, log zerolog.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, log: log}, nil
}

// Close implements store.Repository.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
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

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, period, date, description, category, type, value, source, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, string(rec.Period), rec.Date, rec.Description, rec.Category,
		rec.Type, rec.Value, rec.Source, rec.UploadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	r.log.Debug().
		Str("id", rec.ID).
		Str("user_id", rec.UserID).
		Str("period", string(rec.Period)).
		Msg("Transaction saved to SQLite")

	return nil
}

// ListTransactions implements store.Repository.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.StoredTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, period, date, description, category, type, value, source, uploaded_at
		FROM transactions
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredTransaction{}
	for rows.Next() {
		var (
			rec        domain.StoredTransaction
			period     string
			uploadedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &period, &rec.Date, &rec.Description,
			&rec.Category, &rec.Type, &rec.Value, &rec.Source, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Period = domain.Period(period)
		rec.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("parse uploaded_at of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

// ListPeriods implements store.Repository.
func (r *Repository) ListPeriods(ctx context.Context, userID string) ([]domain.Period, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT period FROM transactions
		WHERE user_id = ?
		ORDER BY period`, userID)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	periods := []domain.Period{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, domain.Period(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

// DeleteTransactions implements store.Repository.
func (r *Repository) DeleteTransactions(ctx context.Context, userID string, period domain.Period) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND period = ?`, userID, string(period))
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("period %s for %s: %w", period, userID, store.ErrNotFound)
	}
	return int(n), nil
}

var _ store.Repository = (*Repository)(nil)
