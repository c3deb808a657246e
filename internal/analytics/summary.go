package analytics

import (
	"sort"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// topCategoryCount is how many categories a summary ranks.
const topCategoryCount = 5

// PeriodSummary is the derived view of one period's transactions.
// Available is false when the period has no transactions, so callers can
// tell "no data" from "zero spending".
type PeriodSummary struct {
	Period          domain.Period     `json:"period"`
	FormattedPeriod string            `json:"formatted_period"`
	Available       bool              `json:"available"`
	Total           Amount            `json:"total"`
	CategorySums    map[string]Amount `json:"category_sums,omitempty"`
	Count           int               `json:"count"`
	Average         Amount            `json:"average"`
	TopCategories   []CategoryShare   `json:"top_categories,omitempty"`
	Largest         *Extreme          `json:"largest,omitempty"`
	Smallest        *Extreme          `json:"smallest,omitempty"`
}

// CategoryShare is one category's amount and share of a total.
type CategoryShare struct {
	Category   string  `json:"category"`
	Amount     Amount  `json:"amount"`
	Percentage Percent `json:"percentage"`
}

// Extreme identifies the largest or smallest transaction of a period.
type Extreme struct {
	Amount      Amount `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// SummarizePeriod computes the summary of one period.
func SummarizePeriod(period domain.Period, txs []domain.Transaction) PeriodSummary {
	s := PeriodSummary{
		Period:          period,
		FormattedPeriod: period.Label(),
	}
	if len(txs) == 0 {
		return s
	}

	s.Available = true
	s.Count = len(txs)
	s.CategorySums = make(map[string]Amount)

	var total float64
	largest, smallest := txs[0], txs[0]
	for _, tx := range txs {
		total += tx.Value
		s.CategorySums[tx.Category] += Amount(tx.Value)
		if tx.Value > largest.Value {
			largest = tx
		}
		if tx.Value < smallest.Value {
			smallest = tx
		}
	}

	s.Total = Amount(total)
	s.Average = Amount(total / float64(s.Count))
	s.TopCategories = rankCategories(s.CategorySums, total, topCategoryCount)
	s.Largest = extremeOf(largest)
	s.Smallest = extremeOf(smallest)

	return s
}

// Summaries computes one summary per period, in the given order.
func Summaries(data domain.TransactionsByPeriod, periods []domain.Period) []PeriodSummary {
	out := make([]PeriodSummary, 0, len(periods))
	for _, p := range periods {
		out = append(out, SummarizePeriod(p, data[p]))
	}
	return out
}

// CategoryTotals sums values per category.
func CategoryTotals(txs []domain.Transaction) map[string]Amount {
	sums := make(map[string]Amount)
	for _, tx := range txs {
		sums[tx.Category] += Amount(tx.Value)
	}
	return sums
}

// rankCategories orders categories by amount descending, then by name, and
// keeps at most limit entries. limit <= 0 keeps all.
func rankCategories(sums map[string]Amount, total float64, limit int) []CategoryShare {
	shares := make([]CategoryShare, 0, len(sums))
	for cat, amt := range sums {
		shares = append(shares, CategoryShare{
			Category:   cat,
			Amount:     amt,
			Percentage: percentOf(float64(amt), total),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Category < shares[j].Category
	})
	if limit > 0 && len(shares) > limit {
		shares = shares[:limit]
	}
	return shares
}

func extremeOf(tx domain.Transaction) *Extreme {
	return &Extreme{
		Amount:      Amount(tx.Value),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date,
	}
}
