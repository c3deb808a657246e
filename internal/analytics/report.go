package analytics

import (
	"sort"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

const sampleSize = 3

// DateRange spans the first and last analysed periods.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Report is the overview of a period selection.
type Report struct {
	HasData         bool                 `json:"has_data"`
	Message         string               `json:"message,omitempty"`
	PeriodsAnalyzed int                  `json:"periods_analyzed"`
	Periods         []domain.Period      `json:"periods"`
	DateRange       *DateRange           `json:"date_range,omitempty"`
	Total           Amount               `json:"total"`
	Count           int                  `json:"count"`
	Average         Amount               `json:"average"`
	TopCategories   []CategoryShare      `json:"top_categories"`
	Rides           *RideSummary         `json:"rides"`
	Growth          *PeriodDelta         `json:"growth"`
	Summaries       []PeriodSummary      `json:"summaries"`
	Sample          []domain.Transaction `json:"sample"`
}

// Summarize builds the overview report for the selected periods.
// Only periods that hold transactions appear in Summaries.
func Summarize(data domain.TransactionsByPeriod, selection []domain.Period, rides RideRules) Report {
	periods := NormalizeSelection(selection)
	all := Summaries(data, periods)

	report := Report{
		Periods:       periods,
		TopCategories: []CategoryShare{},
		Summaries:     []PeriodSummary{},
		Sample:        []domain.Transaction{},
	}

	for _, s := range all {
		if s.Available {
			report.Summaries = append(report.Summaries, s)
		}
	}
	if len(report.Summaries) == 0 {
		report.Message = NoDataMessage
		return report
	}

	report.HasData = true
	report.PeriodsAnalyzed = len(report.Summaries)
	report.DateRange = &DateRange{
		Start: report.Summaries[0].FormattedPeriod,
		End:   report.Summaries[len(report.Summaries)-1].FormattedPeriod,
	}

	txs := data.Select(periods)
	var total float64
	for _, tx := range txs {
		total += tx.Value
	}
	report.Total = Amount(total)
	report.Count = len(txs)
	report.Average = Amount(total / float64(len(txs)))
	report.TopCategories = rankCategories(CategoryTotals(txs), total, topCategoryCount)
	report.Rides = AnalyzeRides(data, periods, rides)
	report.Growth = ComputeDelta(all)

	n := sampleSize
	if len(txs) < n {
		n = len(txs)
	}
	report.Sample = append(report.Sample, txs[:n]...)

	return report
}

// TopExpenses returns up to n expense transactions ordered by value
// descending. Income is excluded; equal values keep their input order.
// The input slice is not modified.
func TopExpenses(txs []domain.Transaction, n int) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsIncome() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
