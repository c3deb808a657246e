package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value. It is kept unrounded in memory and rounded to
// cents only when marshalled.
type Amount float64

// MarshalJSON renders the amount rounded to two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return marshalRounded(float64(a), 2), nil
}

// Rounded returns the amount rounded to cents.
func (a Amount) Rounded() decimal.Decimal {
	return round(float64(a), 2)
}

// String formats the amount with two decimals.
func (a Amount) String() string {
	return a.Rounded().StringFixed(2)
}

// Percent is a percentage rounded to one decimal when marshalled.
type Percent float64

// MarshalJSON renders the percentage rounded to one decimal.
func (p Percent) MarshalJSON() ([]byte, error) {
	return marshalRounded(float64(p), 1), nil
}

// String formats the percentage with one decimal.
func (p Percent) String() string {
	return round(float64(p), 1).StringFixed(1)
}

func round(f float64, places int32) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(places)
}

func marshalRounded(f float64, places int32) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null")
	}
	return []byte(round(f, places).String())
}

// percentOf returns part/whole*100, or 0 when whole is 0.
func percentOf(part, whole float64) Percent {
	if whole == 0 {
		return 0
	}
	return Percent(part / whole * 100)
}
