package indicators

import (
	"sort"
	"time"
)

// Indicator series types stored in the indicators table.
const (
	TypeInflation = "IPC"     // monthly inflation rate, one observation per month
	TypeExchange  = "USD_ARS" // ARS per USD, observed on arbitrary dates
)

// Point is a single dated observation of an economic indicator.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a read-only, chronologically sorted indicator series.
// Lookups treat it as a sparse step function: the value for a date is the
// last observation on or before that date.
type Series struct {
	points []Point
}

// NewSeries builds a series from observations in any order.
func NewSeries(points []Point) Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return Series{points: sorted}
}

// Len returns the number of observations in the series.
func (s Series) Len() int { return len(s.points) }

// RateForMonth returns the observation whose calendar month matches t.
// Used for the monthly inflation index, where each month has at most one rate.
func (s Series) RateForMonth(t time.Time) (float64, bool) {
	for i := len(s.points) - 1; i >= 0; i-- {
		p := s.points[i]
		if p.Date.Year() == t.Year() && p.Date.Month() == t.Month() {
			return p.Value, true
		}
		if p.Date.Before(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)) {
			break
		}
	}
	return 0, false
}

// ValueAsOf returns the latest observation on or before t.
func (s Series) ValueAsOf(t time.Time) (float64, bool) {
	// First index strictly after t; the answer sits just before it.
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(t)
	})
	if i == 0 {
		return 0, false
	}
	return s.points[i-1].Value, true
}

// Earliest returns the first observation in the series.
func (s Series) Earliest() (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	return s.points[0].Value, true
}

// ValueAsOfOrEarliest returns the latest observation on or before t, falling
// back to the earliest known observation when none precedes t, and to 0 when
// the series is empty.
func (s Series) ValueAsOfOrEarliest(t time.Time) float64 {
	if v, ok := s.ValueAsOf(t); ok {
		return v
	}
	v, _ := s.Earliest()
	return v
}
