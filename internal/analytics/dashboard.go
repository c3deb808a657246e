package analytics

import (
	"sort"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// NoDataMessage accompanies results computed over nothing.
const NoDataMessage = "No data available for the selected periods"

// SeriesPoint is one point of a per-period series.
type SeriesPoint struct {
	Period          domain.Period `json:"period"`
	FormattedPeriod string        `json:"formatted_period"`
	Value           Amount        `json:"value"`
}

// CategorySeries holds one category's value for every selected period.
type CategorySeries struct {
	Category string        `json:"category"`
	Points   []SeriesPoint `json:"points"`
}

// PieSlice is one category of the pie breakdown.
type PieSlice struct {
	Category   string  `json:"category"`
	Value      Amount  `json:"value"`
	Percentage Percent `json:"percentage"`
}

// DashboardView holds every chart series for a period selection.
type DashboardView struct {
	HasData            bool             `json:"has_data"`
	Message            string           `json:"message,omitempty"`
	Periods            []domain.Period  `json:"periods"`
	Summaries          []PeriodSummary  `json:"summaries"`
	Totals             []SeriesPoint    `json:"totals"`
	Averages           []SeriesPoint    `json:"averages"`
	CategoryComparison []CategorySeries `json:"category_comparison"`
	PiePeriod          domain.Period    `json:"pie_period,omitempty"`
	Pie                []PieSlice       `json:"pie"`
	Delta              *PeriodDelta     `json:"delta,omitempty"`
}

// NormalizeSelection removes duplicate periods and sorts the rest ascending.
// The input slice is not modified.
func NormalizeSelection(periods []domain.Period) []domain.Period {
	seen := make(map[domain.Period]struct{}, len(periods))
	out := make([]domain.Period, 0, len(periods))
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	domain.SortPeriods(out)
	return out
}

// LatestPeriods returns the last n periods of data in ascending order.
func LatestPeriods(data domain.TransactionsByPeriod, n int) []domain.Period {
	periods := data.Periods()
	if n > 0 && len(periods) > n {
		periods = periods[len(periods)-n:]
	}
	return periods
}

// Dashboard computes the cross-period views for the selected periods.
// An empty selection, or one where no period holds transactions, yields a
// view with HasData false.
func Dashboard(data domain.TransactionsByPeriod, selection []domain.Period) DashboardView {
	periods := NormalizeSelection(selection)
	view := DashboardView{
		Periods:            periods,
		Summaries:          Summaries(data, periods),
		Totals:             []SeriesPoint{},
		Averages:           []SeriesPoint{},
		CategoryComparison: []CategorySeries{},
		Pie:                []PieSlice{},
	}

	if !anyAvailable(view.Summaries) {
		view.Message = NoDataMessage
		return view
	}
	view.HasData = true

	for _, s := range view.Summaries {
		view.Totals = append(view.Totals, SeriesPoint{Period: s.Period, FormattedPeriod: s.FormattedPeriod, Value: s.Total})
		view.Averages = append(view.Averages, SeriesPoint{Period: s.Period, FormattedPeriod: s.FormattedPeriod, Value: s.Average})
	}

	view.CategoryComparison = CompareCategories(view.Summaries)

	latest := view.Summaries[len(view.Summaries)-1]
	view.PiePeriod = latest.Period
	view.Pie = PieBreakdown(latest)
	view.Delta = ComputeDelta(view.Summaries)

	return view
}

// CompareCategories returns the union of categories across summaries,
// sorted by name, each with one point per summary. Missing values are 0.
func CompareCategories(summaries []PeriodSummary) []CategorySeries {
	names := make(map[string]struct{})
	for _, s := range summaries {
		for cat := range s.CategorySums {
			names[cat] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for cat := range names {
		sorted = append(sorted, cat)
	}
	sort.Strings(sorted)

	out := make([]CategorySeries, 0, len(sorted))
	for _, cat := range sorted {
		series := CategorySeries{Category: cat, Points: make([]SeriesPoint, 0, len(summaries))}
		for _, s := range summaries {
			series.Points = append(series.Points, SeriesPoint{
				Period:          s.Period,
				FormattedPeriod: s.FormattedPeriod,
				Value:           s.CategorySums[cat],
			})
		}
		out = append(out, series)
	}
	return out
}

// PieBreakdown returns the category sums of s sorted by value descending.
func PieBreakdown(s PeriodSummary) []PieSlice {
	shares := rankCategories(s.CategorySums, float64(s.Total), 0)
	out := make([]PieSlice, 0, len(shares))
	for _, sh := range shares {
		out = append(out, PieSlice{Category: sh.Category, Value: sh.Amount, Percentage: sh.Percentage})
	}
	return out
}

func anyAvailable(summaries []PeriodSummary) bool {
	for _, s := range summaries {
		if s.Available {
			return true
		}
	}
	return false
}
