package domain

import (
	"fmt"
	"strings"
	"time"
)

// Transaction types produced by the normalizers. The field is free text in
// uploaded files, so these are conventions rather than an enforced enum.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// UncategorizedCategory is used when a source row carries no category.
const UncategorizedCategory = "Uncategorized"

// Transaction represents one normalized financial event.
// Date is kept verbatim from the source; use ParseDate when a time value is needed.
type Transaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseDate parses the transaction date in any of the supported layouts.
func (t Transaction) ParseDate() (time.Time, error) {
	return ParseDate(t.Date)
}

// ParseDate parses a date string as found in statements or model output.
// Date-only values resolve to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// IsIncome reports whether the transaction is tagged as income.
func (t Transaction) IsIncome() bool {
	return strings.EqualFold(strings.TrimSpace(t.Type), TypeIncome)
}

// StoredTransaction is a transaction as persisted for a user.
type StoredTransaction struct {
	Transaction
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Period     Period    `json:"period"`
	UploadedAt time.Time `json:"uploaded_at"`
	Source     string    `json:"source,omitempty"`
}
