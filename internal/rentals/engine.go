package rentals

import (
	"errors"
	"fmt"
	"time"

	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/rs/zerolog/log"
)

var ErrInvalidContract = errors.New("invalid contract")

// Generate produces a contract's full payment schedule: exactly
// DurationMonths entries, one per calendar month from the start month.
//
// ARS contracts in INDEXED mode escalate at every adjustment boundary by the
// inflation rate compounded over the preceding adjustment period; FIXED ones
// keep the initial amount. USD contracts keep the initial amount in USD and
// convert to ARS at each month's exchange rate. The running amount is
// threaded through the loop explicitly, so generation is safe to run
// concurrently across contracts.
//
// Pure function of its inputs; persistence of the schedule is the caller's
// concern.
func Generate(contract *types.Contract, inflation, fx indicators.Series) ([]CashflowEntry, error) {
	if err := validateContract(contract); err != nil {
		return nil, err
	}

	logger := log.With().
		Str("contract_id", contract.ContractID).
		Str("service", "rentals").
		Logger()

	start := monthStart(contract.StartDate)

	// Exchange rate just before the contract's first month, fixed once and
	// used as the devaluation baseline for every entry.
	baseFxRate := fx.ValueAsOfOrEarliest(start.AddDate(0, 0, -1))

	entries := make([]CashflowEntry, 0, contract.DurationMonths)

	previousAmount := contract.InitialAmount
	inflationProduct := 1.0
	inflationComplete := true

	for m := 0; m < contract.DurationMonths; m++ {
		paymentDate := start.AddDate(0, m, 0)
		monthClose := paymentDate.AddDate(0, 1, 0).AddDate(0, 0, -1)

		monthRate, monthRateKnown := inflation.RateForMonth(paymentDate)
		fxRate := fx.ValueAsOfOrEarliest(paymentDate)
		fxRateClose := fx.ValueAsOfOrEarliest(monthClose)

		entry := CashflowEntry{
			ContractID:       contract.ContractID,
			MonthIndex:       m,
			Date:             paymentDate,
			MonthlyIndexRate: monthRate,
			FxRate:           fxRate,
			FxRateMonthClose: fxRateClose,
			FxRateAtOrigin:   baseFxRate,
		}

		// Accumulated index over the preceding adjustment period, computed at
		// every boundary. For USD contracts this is informational only and
		// never feeds the payment amount.
		atBoundary := contract.AdjustmentMode == types.AdjustmentIndexed &&
			m != 0 && m%contract.AdjustmentFrequencyMonths == 0
		if atBoundary {
			factor := 1.0
			for k := m - contract.AdjustmentFrequencyMonths; k < m; k++ {
				rate, _ := inflation.RateForMonth(start.AddDate(0, k, 0))
				factor *= 1 + rate
			}
			entry.AccumIndexSinceAdjustment = factor - 1
		}

		switch contract.Currency {
		case types.CurrencyARS:
			amount := previousAmount
			if m == 0 {
				amount = contract.InitialAmount
			} else if atBoundary {
				amount = previousAmount * (1 + entry.AccumIndexSinceAdjustment)
			}
			entry.AmountARS = amount
			if fxRate > 0 {
				entry.AmountUSD = amount / fxRate
			}
			previousAmount = amount

		case types.CurrencyUSD:
			entry.AmountUSD = contract.InitialAmount
			entry.AmountARS = contract.InitialAmount * fxRate
		}

		// Inflation accumulated from the start month up to, but excluding,
		// this one. Left undefined rather than computed from partial data
		// when any month in the window has no observation.
		if inflationComplete {
			accumInflation := inflationProduct - 1
			entry.AccumInflationSinceStart = &accumInflation

			if baseFxRate > 0 && fxRate > 0 {
				accumDevaluation := fxRate/baseFxRate - 1
				entry.AccumDevaluationSinceStart = &accumDevaluation
			}
		}
		if monthRateKnown {
			inflationProduct *= 1 + monthRate
		} else {
			inflationComplete = false
		}

		entries = append(entries, entry)
	}

	logger.Debug().
		Int("months", len(entries)).
		Float64("base_fx_rate", baseFxRate).
		Msg("generated cashflow schedule")

	return entries, nil
}

func validateContract(contract *types.Contract) error {
	if contract.DurationMonths <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidContract, contract.DurationMonths)
	}
	if contract.Currency != types.CurrencyARS && contract.Currency != types.CurrencyUSD {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidContract, contract.Currency)
	}
	switch contract.AdjustmentMode {
	case types.AdjustmentIndexed:
		if contract.AdjustmentFrequencyMonths <= 0 {
			return fmt.Errorf("%w: adjustment frequency must be positive, got %d",
				ErrInvalidContract, contract.AdjustmentFrequencyMonths)
		}
	case types.AdjustmentFixed:
	default:
		return fmt.Errorf("%w: unknown adjustment mode %q", ErrInvalidContract, contract.AdjustmentMode)
	}
	return nil
}

// monthStart normalizes a date to the first of its month in UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
