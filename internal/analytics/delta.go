package analytics

import "github.com/dvloznov/spending-dashboard/internal/domain"

// PeriodDelta compares the totals of the last two summaries.
type PeriodDelta struct {
	CurrentPeriod  domain.Period `json:"current_period"`
	PreviousPeriod domain.Period `json:"previous_period"`
	CurrentLabel   string        `json:"current_label"`
	PreviousLabel  string        `json:"previous_label"`
	Current        Amount        `json:"current"`
	Previous       Amount        `json:"previous"`
	Difference     Amount        `json:"difference"`
	// PercentChange is nil when the previous total is 0.
	PercentChange *Percent `json:"percent_change"`
	Increased     bool     `json:"increased"`
}

// ComputeDelta compares the last two summaries. It returns nil unless there
// are at least two summaries and both of the last two are available.
func ComputeDelta(summaries []PeriodSummary) *PeriodDelta {
	if len(summaries) < 2 {
		return nil
	}
	prev, cur := summaries[len(summaries)-2], summaries[len(summaries)-1]
	if !prev.Available || !cur.Available {
		return nil
	}

	diff := float64(cur.Total) - float64(prev.Total)
	d := &PeriodDelta{
		CurrentPeriod:  cur.Period,
		PreviousPeriod: prev.Period,
		CurrentLabel:   cur.FormattedPeriod,
		PreviousLabel:  prev.FormattedPeriod,
		Current:        cur.Total,
		Previous:       prev.Total,
		Difference:     Amount(diff),
		Increased:      diff > 0,
	}
	if prev.Total != 0 {
		pc := Percent(diff / float64(prev.Total) * 100)
		d.PercentChange = &pc
	}
	return d
}
