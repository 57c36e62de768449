package rentals

import (
	"time"

	"gorm.io/gorm"
)

// CashflowEntry is one month of a contract's payment schedule. A contract's
// rows are keyed by (contract_id, month_index) and always replaced as a
// whole, never patched.
type CashflowEntry struct {
	gorm.Model       `json:"-"`
	ContractID       string    `gorm:"uniqueIndex:idx_cashflow_contract_month" json:"contract_id"`
	MonthIndex       int       `gorm:"uniqueIndex:idx_cashflow_contract_month" json:"month_index"`
	Date             time.Time `json:"date"`
	AmountARS        float64   `json:"amount_ars"`
	AmountUSD        float64   `json:"amount_usd"`
	MonthlyIndexRate float64   `json:"monthly_index_rate"`
	// Compounded index rate applied at this adjustment boundary; zero between
	// boundaries. Informational only for USD contracts.
	AccumIndexSinceAdjustment float64 `json:"accumulated_index_since_adjustment"`
	FxRate                    float64 `json:"fx_rate"`
	FxRateMonthClose          float64 `json:"fx_rate_month_close"`
	FxRateAtOrigin            float64 `json:"fx_rate_at_origin"`
	// Nil when the inflation series is missing a month in the window; a
	// report shows N/A instead of a figure built from partial data.
	AccumInflationSinceStart *float64 `json:"accumulated_inflation_since_start,omitempty"`
	// Defined only alongside the inflation accumulator, so devaluation is
	// never reported without its inflation baseline.
	AccumDevaluationSinceStart *float64 `json:"accumulated_devaluation_since_start,omitempty"`
}

type ContractRequest struct {
	Description               string    `json:"description"`
	StartDate                 time.Time `json:"start_date" binding:"required"`
	DurationMonths            int       `json:"duration_months" binding:"required"`
	InitialAmount             float64   `json:"initial_amount" binding:"required"`
	Currency                  string    `json:"currency" binding:"required"`
	AdjustmentMode            string    `json:"adjustment_mode" binding:"required"`
	AdjustmentFrequencyMonths int       `json:"adjustment_frequency_months"`
}
