package analytics

import (
	"strings"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// TimeOfDay is a bucket of the 24-hour day.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // [5, 12)
	Afternoon TimeOfDay = "afternoon" // [12, 17)
	Evening   TimeOfDay = "evening"   // [17, 21)
	Night     TimeOfDay = "night"     // [21, 24) and [0, 5)
)

// TimesOfDay lists the buckets in tie-break order.
var TimesOfDay = []TimeOfDay{Morning, Afternoon, Evening, Night}

// BucketHour returns the bucket that claims hour.
func BucketHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// RideRules selects the ride-hailing subset.
// Vendors match description or category; Categories match category only.
// Matching is case-insensitive substring matching.
type RideRules struct {
	Vendors    []string
	Categories []string
}

// DefaultRideRules matches Uber trips and ride or transport categories.
func DefaultRideRules() RideRules {
	return RideRules{
		Vendors:    []string{"uber"},
		Categories: []string{"ride", "transport"},
	}
}

// Matches reports whether tx belongs to the ride subset.
func (r RideRules) Matches(tx domain.Transaction) bool {
	desc := strings.ToLower(tx.Description)
	cat := strings.ToLower(tx.Category)
	for _, v := range r.Vendors {
		if v == "" {
			continue
		}
		v = strings.ToLower(v)
		if strings.Contains(desc, v) || strings.Contains(cat, v) {
			return true
		}
	}
	for _, c := range r.Categories {
		if c != "" && strings.Contains(cat, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// RideSummary describes the ride-hailing subset of the selected periods.
type RideSummary struct {
	TotalSpent     Amount            `json:"total_spent"`
	TripCount      int               `json:"trip_count"`
	AverageTrip    Amount            `json:"average_trip"`
	PercentOfTotal Percent           `json:"percent_of_total"`
	ByTimeOfDay    map[TimeOfDay]int `json:"by_time_of_day"`
	MostCommonTime TimeOfDay         `json:"most_common_time"`
	WeekdayTrips   int               `json:"weekday_trips"`
	WeekendTrips   int               `json:"weekend_trips"`
	Monthly        []RideMonth       `json:"monthly"`
}

// RideMonth is the per-period slice of a RideSummary.
type RideMonth struct {
	Period          domain.Period `json:"period"`
	FormattedPeriod string        `json:"formatted_period"`
	TotalSpent      Amount        `json:"total_spent"`
	TripCount       int           `json:"trip_count"`
	AverageTrip     Amount        `json:"average_trip"`
	WeekdayTrips    int           `json:"weekday_trips"`
	WeekendTrips    int           `json:"weekend_trips"`
}

// AnalyzeRides summarizes ride transactions over the selected periods.
// It returns nil when no transaction matches.
//
// Transactions whose date cannot be parsed are bucketed as night and are not
// counted as weekday or weekend trips.
func AnalyzeRides(data domain.TransactionsByPeriod, selection []domain.Period, rules RideRules) *RideSummary {
	periods := NormalizeSelection(selection)

	summary := &RideSummary{
		ByTimeOfDay: make(map[TimeOfDay]int, len(TimesOfDay)),
		Monthly:     []RideMonth{},
	}
	for _, b := range TimesOfDay {
		summary.ByTimeOfDay[b] = 0
	}

	var total, overall float64
	for _, p := range periods {
		month := RideMonth{Period: p, FormattedPeriod: p.Label()}
		var monthTotal float64

		for _, tx := range data[p] {
			overall += tx.Value
			if !rules.Matches(tx) {
				continue
			}

			month.TripCount++
			monthTotal += tx.Value

			ts, err := tx.ParseDate()
			if err != nil {
				summary.ByTimeOfDay[Night]++
				continue
			}
			summary.ByTimeOfDay[BucketHour(ts.Hour())]++
			if isWeekend(ts) {
				month.WeekendTrips++
			} else {
				month.WeekdayTrips++
			}
		}

		if month.TripCount == 0 {
			continue
		}
		month.TotalSpent = Amount(monthTotal)
		month.AverageTrip = Amount(monthTotal / float64(month.TripCount))
		summary.Monthly = append(summary.Monthly, month)

		total += monthTotal
		summary.TripCount += month.TripCount
		summary.WeekdayTrips += month.WeekdayTrips
		summary.WeekendTrips += month.WeekendTrips
	}

	if summary.TripCount == 0 {
		return nil
	}

	summary.TotalSpent = Amount(total)
	summary.AverageTrip = Amount(total / float64(summary.TripCount))
	summary.PercentOfTotal = percentOf(total, overall)
	summary.MostCommonTime = mostCommon(summary.ByTimeOfDay)

	return summary
}

// mostCommon returns the bucket with the highest count; the first bucket in
// TimesOfDay order wins ties.
func mostCommon(counts map[TimeOfDay]int) TimeOfDay {
	best := TimesOfDay[0]
	for _, b := range TimesOfDay[1:] {
		if counts[b] > counts[best] {
			best = b
		}
	}
	return best
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
