package analytics

import (
	"testing"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() domain.TransactionsByPeriod {
	return domain.TransactionsByPeriod{
		"2024-01": {
			tx("2024-01-03", "MARKET", "Food", 100),
			tx("2024-01-10", "RENT", "Housing", 900),
		},
		"2024-02": {
			tx("2024-02-03", "MARKET", "Food", 150),
			tx("2024-02-14", "CINEMA", "Fun", 50),
		},
		"2024-03": {
			tx("2024-03-03", "MARKET", "Food", 120),
			tx("2024-03-05", "UBER *TRIP", "Transport", 30),
			tx("2024-03-07", "RENT", "Housing", 900),
		},
	}
}

func TestDashboard_EmptySelectionIsNoData(t *testing.T) {
	for _, sel := range [][]domain.Period{nil, {}} {
		view := Dashboard(sampleData(), sel)

		assert.False(t, view.HasData)
		assert.Equal(t, NoDataMessage, view.Message)
		assert.Empty(t, view.Totals)
		assert.Empty(t, view.Pie)
		assert.Nil(t, view.Delta)
	}
}

func TestDashboard_SelectionWithoutTransactionsIsNoData(t *testing.T) {
	view := Dashboard(sampleData(), []domain.Period{"2023-05", "2023-06"})

	assert.False(t, view.HasData)
	require.Len(t, view.Summaries, 2)
	assert.False(t, view.Summaries[0].Available)
}

func TestDashboard_SeriesAreAscendingAndDeduplicated(t *testing.T) {
	selection := []domain.Period{"2024-03", "2024-01", "2024-03", "2024-02"}
	view := Dashboard(sampleData(), selection)

	require.True(t, view.HasData)
	assert.Equal(t, []domain.Period{"2024-01", "2024-02", "2024-03"}, view.Periods)
	assert.Equal(t, []domain.Period{"2024-03", "2024-01", "2024-03", "2024-02"}, selection, "selection must not be modified")

	require.Len(t, view.Totals, 3)
	assert.Equal(t, Amount(1000), view.Totals[0].Value)
	assert.Equal(t, Amount(200), view.Totals[1].Value)
	assert.Equal(t, Amount(1050), view.Totals[2].Value)
	assert.Equal(t, "March 2024", view.Totals[2].FormattedPeriod)

	require.Len(t, view.Averages, 3)
	assert.Equal(t, Amount(500), view.Averages[0].Value)
	assert.Equal(t, Amount(100), view.Averages[1].Value)
	assert.Equal(t, Amount(350), view.Averages[2].Value)
}

func TestDashboard_CategoryComparisonIsComplete(t *testing.T) {
	view := Dashboard(sampleData(), []domain.Period{"2024-01", "2024-02", "2024-03"})

	var names []string
	for _, series := range view.CategoryComparison {
		names = append(names, series.Category)
		require.Len(t, series.Points, len(view.Periods), "category %s", series.Category)
		for i, p := range series.Points {
			assert.Equal(t, view.Periods[i], p.Period)
		}
	}
	assert.Equal(t, []string{"Food", "Fun", "Housing", "Transport"}, names)

	fun := view.CategoryComparison[1]
	assert.Equal(t, Amount(0), fun.Points[0].Value)
	assert.Equal(t, Amount(50), fun.Points[1].Value)
	assert.Equal(t, Amount(0), fun.Points[2].Value)
}

func TestDashboard_PieUsesCalendarLatestPeriod(t *testing.T) {
	view := Dashboard(sampleData(), []domain.Period{"2024-03", "2024-01"})

	assert.Equal(t, domain.Period("2024-03"), view.PiePeriod)
	require.Len(t, view.Pie, 3)
	assert.Equal(t, "Housing", view.Pie[0].Category)
	assert.Equal(t, "Food", view.Pie[1].Category)
	assert.Equal(t, "Transport", view.Pie[2].Category)

	var share float64
	for _, slice := range view.Pie {
		share += float64(slice.Percentage)
	}
	assert.InDelta(t, 100.0, share, 1e-9)
}

func TestDashboard_Delta(t *testing.T) {
	view := Dashboard(sampleData(), []domain.Period{"2024-02", "2024-03"})

	require.NotNil(t, view.Delta)
	assert.Equal(t, domain.Period("2024-02"), view.Delta.PreviousPeriod)
	assert.Equal(t, domain.Period("2024-03"), view.Delta.CurrentPeriod)
	assert.Equal(t, Amount(850), view.Delta.Difference)
	require.NotNil(t, view.Delta.PercentChange)
	assert.InDelta(t, 425.0, float64(*view.Delta.PercentChange), 1e-9)
	assert.True(t, view.Delta.Increased)
}

func TestComputeDelta(t *testing.T) {
	avail := func(p domain.Period, total float64) PeriodSummary {
		return PeriodSummary{Period: p, Available: true, Total: Amount(total)}
	}

	tests := []struct {
		name        string
		summaries   []PeriodSummary
		wantNil     bool
		wantDiff    float64
		wantPercent *float64
		wantUp      bool
	}{
		{name: "none", wantNil: true},
		{name: "single", summaries: []PeriodSummary{avail("2024-01", 10)}, wantNil: true},
		{
			name:      "previous unavailable",
			summaries: []PeriodSummary{{Period: "2024-01"}, avail("2024-02", 10)},
			wantNil:   true,
		},
		{
			name:      "current unavailable",
			summaries: []PeriodSummary{avail("2024-01", 10), {Period: "2024-02"}},
			wantNil:   true,
		},
		{
			name:        "decrease",
			summaries:   []PeriodSummary{avail("2024-01", 200), avail("2024-02", 150)},
			wantDiff:    -50,
			wantPercent: ptr(-25),
		},
		{
			name:        "unchanged is not an increase",
			summaries:   []PeriodSummary{avail("2024-01", 80), avail("2024-02", 80)},
			wantDiff:    0,
			wantPercent: ptr(0),
		},
		{
			name:      "from zero has no percent",
			summaries: []PeriodSummary{avail("2024-01", 0), avail("2024-02", 30)},
			wantDiff:  30,
			wantUp:    true,
		},
		{
			name:        "uses last two",
			summaries:   []PeriodSummary{avail("2023-12", 1), avail("2024-01", 100), avail("2024-02", 110)},
			wantDiff:    10,
			wantPercent: ptr(10),
			wantUp:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ComputeDelta(tt.summaries)
			if tt.wantNil {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.InDelta(t, tt.wantDiff, float64(d.Difference), 1e-9)
			assert.Equal(t, tt.wantUp, d.Increased)
			if tt.wantPercent == nil {
				assert.Nil(t, d.PercentChange)
			} else {
				require.NotNil(t, d.PercentChange)
				assert.InDelta(t, *tt.wantPercent, float64(*d.PercentChange), 1e-9)
			}
		})
	}
}

func TestLatestPeriods(t *testing.T) {
	data := sampleData()

	assert.Equal(t, []domain.Period{"2024-02", "2024-03"}, LatestPeriods(data, 2))
	assert.Equal(t, []domain.Period{"2024-01", "2024-02", "2024-03"}, LatestPeriods(data, 4))
	assert.Empty(t, LatestPeriods(domain.TransactionsByPeriod{}, 4))
}

func ptr(f float64) *float64 { return &f }
