package rentals

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func month(n int) time.Time {
	return start.AddDate(0, n, 0)
}

// flatInflation builds an inflation series with the same monthly rate for n
// months from the contract start.
func flatInflation(rate float64, n int) indicators.Series {
	points := make([]indicators.Point, n)
	for i := range points {
		points[i] = indicators.Point{Date: month(i), Value: rate}
	}
	return indicators.NewSeries(points)
}

// flatFx builds an exchange rate series fixed at the given value, starting
// one month before the contract.
func flatFx(rate float64) indicators.Series {
	return indicators.NewSeries([]indicators.Point{
		{Date: month(-1), Value: rate},
	})
}

func arsIndexedContract(initial float64, months, freq int) *types.Contract {
	return &types.Contract{
		ContractID:                "CTR_test",
		StartDate:                 start,
		DurationMonths:            months,
		InitialAmount:             initial,
		Currency:                  types.CurrencyARS,
		AdjustmentMode:            types.AdjustmentIndexed,
		AdjustmentFrequencyMonths: freq,
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestGenerateIndexedARS(t *testing.T) {
	contract := arsIndexedContract(1000, 6, 3)
	inflation := flatInflation(0.02, 6)
	fx := flatFx(800)

	entries, err := Generate(contract, inflation, fx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	// Months 0-2 keep the initial amount.
	for m := 0; m < 3; m++ {
		if entries[m].AmountARS != 1000 {
			t.Errorf("month %d: expected amount 1000, got %f", m, entries[m].AmountARS)
		}
		if entries[m].AccumIndexSinceAdjustment != 0 {
			t.Errorf("month %d: expected no adjustment, got %f", m, entries[m].AccumIndexSinceAdjustment)
		}
	}

	// Month 3 escalates by 1.02^3 - 1.
	want := 1000 * 1.02 * 1.02 * 1.02
	if !almostEqual(entries[3].AmountARS, want, 1e-9) {
		t.Errorf("month 3: expected amount %f, got %f", want, entries[3].AmountARS)
	}
	if !almostEqual(entries[3].AccumIndexSinceAdjustment, math.Pow(1.02, 3)-1, 1e-12) {
		t.Errorf("month 3: expected accum index %f, got %f",
			math.Pow(1.02, 3)-1, entries[3].AccumIndexSinceAdjustment)
	}

	// Months 4-5 carry the escalated amount unchanged.
	for m := 4; m < 6; m++ {
		if !almostEqual(entries[m].AmountARS, want, 1e-9) {
			t.Errorf("month %d: expected amount %f, got %f", m, want, entries[m].AmountARS)
		}
	}

	// USD equivalent follows the month's exchange rate.
	if !almostEqual(entries[0].AmountUSD, 1000.0/800, 1e-9) {
		t.Errorf("expected USD amount %f, got %f", 1000.0/800, entries[0].AmountUSD)
	}
}

func TestGenerateFixedARS(t *testing.T) {
	contract := arsIndexedContract(1000, 12, 3)
	contract.AdjustmentMode = types.AdjustmentFixed
	inflation := flatInflation(0.10, 12)

	entries, err := Generate(contract, inflation, flatFx(800))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for m, entry := range entries {
		if entry.AmountARS != 1000 {
			t.Errorf("month %d: expected fixed amount 1000, got %f", m, entry.AmountARS)
		}
		if entry.AccumIndexSinceAdjustment != 0 {
			t.Errorf("month %d: fixed contract must not accumulate index", m)
		}
	}
}

func TestGenerateUSDContract(t *testing.T) {
	contract := &types.Contract{
		ContractID:                "CTR_usd",
		StartDate:                 start,
		DurationMonths:            4,
		InitialAmount:             500,
		Currency:                  types.CurrencyUSD,
		AdjustmentMode:            types.AdjustmentIndexed,
		AdjustmentFrequencyMonths: 2,
	}
	inflation := flatInflation(0.05, 4)
	fx := indicators.NewSeries([]indicators.Point{
		{Date: month(-1), Value: 800},
		{Date: month(1), Value: 900},
		{Date: month(2), Value: 1000},
	})

	entries, err := Generate(contract, inflation, fx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for m, entry := range entries {
		if entry.AmountUSD != 500 {
			t.Errorf("month %d: USD amount must stay 500, got %f", m, entry.AmountUSD)
		}
	}

	// ARS equivalents track the exchange rate of each month.
	if entries[0].AmountARS != 500*800 {
		t.Errorf("month 0: expected ARS %f, got %f", 500.0*800, entries[0].AmountARS)
	}
	if entries[1].AmountARS != 500*900 {
		t.Errorf("month 1: expected ARS %f, got %f", 500.0*900, entries[1].AmountARS)
	}

	// The boundary index is still reported, but never moves the amount.
	if entries[2].AccumIndexSinceAdjustment == 0 {
		t.Error("month 2: expected reported accum index at boundary")
	}
	if entries[2].AmountUSD != 500 {
		t.Errorf("month 2: index must not change USD amount, got %f", entries[2].AmountUSD)
	}
}

func TestGenerateAccumulatedInflation(t *testing.T) {
	contract := arsIndexedContract(1000, 4, 2)
	inflation := flatInflation(0.03, 4)

	entries, err := Generate(contract, inflation, flatFx(800))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// Accumulated inflation covers [start, m), so month 0 is exactly 0.
	if entries[0].AccumInflationSinceStart == nil {
		t.Fatal("month 0: expected accumulated inflation")
	}
	if *entries[0].AccumInflationSinceStart != 0 {
		t.Errorf("month 0: expected 0, got %f", *entries[0].AccumInflationSinceStart)
	}

	if entries[3].AccumInflationSinceStart == nil {
		t.Fatal("month 3: expected accumulated inflation")
	}
	want := math.Pow(1.03, 3) - 1
	if !almostEqual(*entries[3].AccumInflationSinceStart, want, 1e-12) {
		t.Errorf("month 3: expected %f, got %f", want, *entries[3].AccumInflationSinceStart)
	}
}

func TestGenerateMissingInflationMonth(t *testing.T) {
	contract := arsIndexedContract(1000, 5, 2)
	// Month 1 has no observation.
	inflation := indicators.NewSeries([]indicators.Point{
		{Date: month(0), Value: 0.02},
		{Date: month(2), Value: 0.02},
		{Date: month(3), Value: 0.02},
		{Date: month(4), Value: 0.02},
	})

	entries, err := Generate(contract, inflation, flatFx(800))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// Months 0 and 1 still have a defined accumulation window.
	if entries[0].AccumInflationSinceStart == nil || entries[1].AccumInflationSinceStart == nil {
		t.Fatal("expected accumulated inflation before the gap")
	}

	// From month 2 on the window includes the missing month: undefined, not 0.
	for m := 2; m < 5; m++ {
		if entries[m].AccumInflationSinceStart != nil {
			t.Errorf("month %d: expected undefined accumulated inflation, got %f",
				m, *entries[m].AccumInflationSinceStart)
		}
		if entries[m].AccumDevaluationSinceStart != nil {
			t.Errorf("month %d: expected undefined accumulated devaluation", m)
		}
	}
}

func TestGenerateDevaluation(t *testing.T) {
	contract := arsIndexedContract(1000, 3, 3)
	inflation := flatInflation(0.02, 3)
	fx := indicators.NewSeries([]indicators.Point{
		{Date: month(-1), Value: 800},
		{Date: month(1), Value: 1000},
	})

	entries, err := Generate(contract, inflation, fx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if entries[1].AccumDevaluationSinceStart == nil {
		t.Fatal("month 1: expected accumulated devaluation")
	}
	// 1000/800 - 1 = 0.25 against the baseline fixed before the start month.
	if !almostEqual(*entries[1].AccumDevaluationSinceStart, 0.25, 1e-12) {
		t.Errorf("month 1: expected 0.25, got %f", *entries[1].AccumDevaluationSinceStart)
	}
	if entries[1].FxRateAtOrigin != 800 {
		t.Errorf("expected origin rate 800, got %f", entries[1].FxRateAtOrigin)
	}
}

func TestGenerateMonthlyEntries(t *testing.T) {
	contract := arsIndexedContract(1000, 24, 6)
	// Start mid-month: entries snap to the first of each month.
	contract.StartDate = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	entries, err := Generate(contract, flatInflation(0.02, 24), flatFx(800))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(entries) != 24 {
		t.Fatalf("expected 24 entries, got %d", len(entries))
	}

	for m, entry := range entries {
		if entry.MonthIndex != m {
			t.Errorf("entry %d: expected month index %d, got %d", m, m, entry.MonthIndex)
		}
		want := time.Date(2024, time.Month(1+m), 1, 0, 0, 0, 0, time.UTC)
		if !entry.Date.Equal(want) {
			t.Errorf("entry %d: expected date %v, got %v", m, want, entry.Date)
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	contract := arsIndexedContract(1000, 12, 3)
	inflation := flatInflation(0.04, 12)
	fx := flatFx(850)

	first, err := Generate(contract, inflation, fx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	second, err := Generate(contract, inflation, fx)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AmountARS != second[i].AmountARS ||
			first[i].AmountUSD != second[i].AmountUSD ||
			first[i].AccumIndexSinceAdjustment != second[i].AccumIndexSinceAdjustment {
			t.Errorf("entry %d differs between runs", i)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name     string
		contract *types.Contract
	}{
		{"zero duration", &types.Contract{
			Currency: types.CurrencyARS, AdjustmentMode: types.AdjustmentFixed,
		}},
		{"unknown currency", &types.Contract{
			DurationMonths: 12, Currency: "EUR", AdjustmentMode: types.AdjustmentFixed,
		}},
		{"unknown mode", &types.Contract{
			DurationMonths: 12, Currency: types.CurrencyARS, AdjustmentMode: "STEPPED",
		}},
		{"indexed without frequency", &types.Contract{
			DurationMonths: 12, Currency: types.CurrencyARS, AdjustmentMode: types.AdjustmentIndexed,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.contract, indicators.NewSeries(nil), indicators.NewSeries(nil))
			if !errors.Is(err, ErrInvalidContract) {
				t.Errorf("expected ErrInvalidContract, got %v", err)
			}
		})
	}
}
