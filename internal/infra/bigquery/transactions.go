package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	Period        string `bigquery:"period"`         // REQUIRED, YYYY-MM

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE, parsed from RawDate
	RawDate         string            `bigquery:"raw_date"`         // REQUIRED, as written on the statement

	Description string   `bigquery:"description"` // REQUIRED
	Category    string   `bigquery:"category"`    // REQUIRED
	Type        string   `bigquery:"type"`        // REQUIRED, income|expense
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC

	Source     string    `bigquery:"source"`      // NULLABLE
	UploadedAt time.Time `bigquery:"uploaded_at"` // REQUIRED
}

// NewTransactionRow converts a stored record to its table representation.
func NewTransactionRow(rec domain.StoredTransaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID: rec.ID,
		UserID:        rec.UserID,
		Period:        string(rec.Period),
		RawDate:       rec.Date,
		Description:   rec.Description,
		Category:      rec.Category,
		Type:          rec.Type,
		Amount:        decimal.NewFromFloat(rec.Value).Rat(),
		Source:        rec.Source,
		UploadedAt:    rec.UploadedAt.UTC(),
	}
	if t, err := rec.ParseDate(); err == nil {
		row.TransactionDate = bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
	}
	return row
}

// Record converts a table row back to a stored record.
func (r *TransactionRow) Record() domain.StoredTransaction {
	var value float64
	if r.Amount != nil {
		value, _ = r.Amount.Float64()
	}
	return domain.StoredTransaction{
		Transaction: domain.Transaction{
			Date:        r.RawDate,
			Description: r.Description,
			Category:    r.Category,
			Type:        r.Type,
			Value:       value,
		},
		ID:         r.TransactionID,
		UserID:     r.UserID,
		Period:     domain.Period(r.Period),
		UploadedAt: r.UploadedAt,
		Source:     r.Source,
	}
}
