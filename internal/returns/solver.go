package returns

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidStream = errors.New("invalid cashflow stream")

// Seed rates tried in order; the first converging seed wins.
var seedRates = []float64{0.05, 0.10, 0.01, -0.10, 0.20}

const (
	maxIterations   = 200
	rateTolerance   = 1e-9  // convergence threshold on successive estimates
	npvTolerance    = 1e-4  // acceptance threshold on the residual NPV
	derivativeFloor = 1e-12 // below this the attempt is considered diverging
	resultPrecision = 10
	daysPerYear     = 365.0
)

// Solve finds the annualized money-weighted rate of return r with
// NPV(r) = Σ amounts[i] / (1+r)^(days[i]/365) = 0 for an irregular dated
// cashflow stream. Day counts are measured from the first date.
//
// The solver runs Newton-Raphson from a fixed list of seed rates and accepts
// the first converged rate whose residual NPV is negligible. When no seed
// converges it returns ok=false: "no solution" is a legitimate outcome the
// caller renders as N/A, not an error.
func Solve(amounts []float64, dates []time.Time) (rate float64, ok bool, err error) {
	if len(amounts) != len(dates) {
		return 0, false, fmt.Errorf("%w: %d amounts vs %d dates", ErrInvalidStream, len(amounts), len(dates))
	}
	if len(amounts) < 2 {
		return 0, false, fmt.Errorf("%w: need at least two cashflows, got %d", ErrInvalidStream, len(amounts))
	}

	var hasNegative, hasPositive bool
	for _, a := range amounts {
		if a < 0 {
			hasNegative = true
		}
		if a > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return 0, false, fmt.Errorf("%w: need at least one negative and one positive cashflow", ErrInvalidStream)
	}

	days := make([]float64, len(dates))
	for i := range dates {
		days[i] = math.Floor(dates[i].Sub(dates[0]).Hours() / 24)
	}

	for _, seed := range seedRates {
		candidate, converged := newton(amounts, days, seed)
		if !converged {
			continue
		}
		if math.Abs(npv(amounts, days, candidate)) < npvTolerance {
			rounded := decimal.NewFromFloat(candidate).Round(resultPrecision).InexactFloat64()
			return rounded, true, nil
		}
	}

	return 0, false, nil
}

// newton runs Newton-Raphson from one seed. It abandons the attempt when the
// derivative vanishes, the estimate leaves the valid domain (1+r <= 0) or the
// iteration cap is reached without convergence.
func newton(amounts, days []float64, seed float64) (float64, bool) {
	rate := seed
	for i := 0; i < maxIterations; i++ {
		if rate <= -1 {
			return 0, false
		}
		derivative := npvDerivative(amounts, days, rate)
		if math.Abs(derivative) < derivativeFloor {
			return 0, false
		}
		next := rate - npv(amounts, days, rate)/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if math.Abs(next-rate) < rateTolerance {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func npv(amounts, days []float64, rate float64) float64 {
	var sum float64
	for i := range amounts {
		sum += amounts[i] / math.Pow(1+rate, days[i]/daysPerYear)
	}
	return sum
}

// npvDerivative is the closed-form analytic derivative of npv with respect
// to the rate.
func npvDerivative(amounts, days []float64, rate float64) float64 {
	var sum float64
	for i := range amounts {
		exponent := days[i] / daysPerYear
		sum += -exponent * amounts[i] / math.Pow(1+rate, exponent+1)
	}
	return sum
}
