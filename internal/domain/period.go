package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// ErrInvalidPeriod is returned when a period key is not a YYYY-MM value.
var ErrInvalidPeriod = errors.New("invalid period")

const periodLayout = "2006-01"

var periodInName = regexp.MustCompile(`\d{4}-\d{2}`)

// Period is a calendar year-month bucket, formatted YYYY-MM.
// Keys are zero padded, so lexicographic order equals calendar order.
type Period string

// ParsePeriod validates s and returns it as a Period.
func ParsePeriod(s string) (Period, error) {
	if _, err := time.Parse(periodLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period(s), nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

// PeriodFromFilename extracts the first YYYY-MM occurrence in an upload file name.
// Files without one are assigned to the month of now.
func PeriodFromFilename(name string, now time.Time) Period {
	base := filepath.Base(name)
	for _, m := range periodInName.FindAllString(base, -1) {
		if p, err := ParsePeriod(m); err == nil {
			return p
		}
	}
	return PeriodOf(now)
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() (time.Time, error) {
	t, err := time.Parse(periodLayout, string(p))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return t, nil
}

// Label formats the period for display, e.g. "January 2024".
// Invalid keys are returned unchanged.
func (p Period) Label() string {
	t, err := p.Start()
	if err != nil {
		return string(p)
	}
	return fmt.Sprintf("%s %d", t.Month().String(), t.Year())
}

func (p Period) String() string {
	return string(p)
}

// SortPeriods sorts periods ascending in place.
func SortPeriods(periods []Period) {
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })
}

// TransactionsByPeriod maps a period to the transactions recorded in it.
type TransactionsByPeriod map[Period][]Transaction

// Periods returns the keys sorted ascending.
func (m TransactionsByPeriod) Periods() []Period {
	periods := make([]Period, 0, len(m))
	for p := range m {
		periods = append(periods, p)
	}
	SortPeriods(periods)
	return periods
}

// Select flattens the transactions of the given periods, in the given order.
// Unknown periods contribute nothing.
func (m TransactionsByPeriod) Select(periods []Period) []Transaction {
	var out []Transaction
	for _, p := range periods {
		out = append(out, m[p]...)
	}
	return out
}

// GroupByPeriod regroups stored records by their period tag.
// Records without a period are skipped.
func GroupByPeriod(records []StoredTransaction) TransactionsByPeriod {
	grouped := make(TransactionsByPeriod)
	for _, rec := range records {
		if rec.Period == "" {
			continue
		}
		grouped[rec.Period] = append(grouped[rec.Period], rec.Transaction)
	}
	return grouped
}
