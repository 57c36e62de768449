package returns

import (
	"errors"
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSolveOneYearRoundTrip(t *testing.T) {
	amounts := []float64{-1000, 1100}
	dates := []time.Time{date(2023, 1, 1), date(2024, 1, 1)}

	rate, ok, err := Solve(amounts, dates)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a solution")
	}
	// Exactly 365 days at 10%: the rate must come back as 0.10.
	if math.Abs(rate-0.10) > 1e-6 {
		t.Errorf("expected rate 0.10, got %f", rate)
	}
}

func TestSolveMultipleFlows(t *testing.T) {
	// Two investments and a final redemption. The solved rate must zero the
	// NPV of the whole stream.
	amounts := []float64{-10000, -5000, 17000}
	dates := []time.Time{
		date(2023, 1, 1),
		date(2023, 7, 1),
		date(2024, 12, 31),
	}

	rate, ok, err := Solve(amounts, dates)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a solution")
	}

	var sum float64
	for i := range amounts {
		days := math.Floor(dates[i].Sub(dates[0]).Hours() / 24)
		sum += amounts[i] / math.Pow(1+rate, days/365)
	}
	if math.Abs(sum) > 1e-3 {
		t.Errorf("solved rate %f leaves residual NPV %f", rate, sum)
	}
}

func TestSolveNegativeRate(t *testing.T) {
	amounts := []float64{-1000, 900}
	dates := []time.Time{date(2023, 1, 1), date(2024, 1, 1)}

	rate, ok, err := Solve(amounts, dates)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a solution")
	}
	if math.Abs(rate-(-0.10)) > 1e-6 {
		t.Errorf("expected rate -0.10, got %f", rate)
	}
}

func TestSolveSameDayFlows(t *testing.T) {
	// Zero elapsed time for the second flow keeps it undiscounted.
	amounts := []float64{-1000, 500, 600}
	dates := []time.Time{
		date(2023, 1, 1),
		date(2023, 1, 1),
		date(2024, 1, 1),
	}

	rate, ok, err := Solve(amounts, dates)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a solution")
	}
	// -500 + 600/(1+r) = 0 → r = 0.20
	if math.Abs(rate-0.20) > 1e-6 {
		t.Errorf("expected rate 0.20, got %f", rate)
	}
}

func TestSolveValidation(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		dates   []time.Time
	}{
		{
			"length mismatch",
			[]float64{-1000, 1100},
			[]time.Time{date(2024, 1, 1)},
		},
		{
			"single flow",
			[]float64{-1000},
			[]time.Time{date(2024, 1, 1)},
		},
		{
			"all negative",
			[]float64{-1000, -500},
			[]time.Time{date(2023, 1, 1), date(2024, 1, 1)},
		},
		{
			"all positive",
			[]float64{1000, 500},
			[]time.Time{date(2023, 1, 1), date(2024, 1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Solve(tt.amounts, tt.dates)
			if !errors.Is(err, ErrInvalidStream) {
				t.Errorf("expected ErrInvalidStream, got %v", err)
			}
		})
	}
}

func TestSolveNoSolutionIsNotAnError(t *testing.T) {
	// An absurd gain over one day pushes the root far beyond any seed's
	// basin; whether or not a root is found, Solve must not error.
	amounts := []float64{-1, 1e12}
	dates := []time.Time{date(2024, 1, 1), date(2024, 1, 2)}

	_, _, err := Solve(amounts, dates)
	if err != nil {
		t.Fatalf("no-solution case must not return an error, got %v", err)
	}
}
