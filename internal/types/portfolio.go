package types

import (
	"time"

	"gorm.io/gorm"
)

// Transaction kinds.
const (
	KindBuy  = "BUY"
	KindSell = "SELL"
)

// Supported currencies. ARS is the local currency, USD the foreign one.
const (
	CurrencyARS = "ARS"
	CurrencyUSD = "USD"
)

// Contract adjustment modes.
const (
	AdjustmentIndexed = "INDEXED"
	AdjustmentFixed   = "FIXED"
)

type Transaction struct {
	gorm.Model    `json:"-"`
	TransactionID string    `gorm:"uniqueIndex" json:"transaction_id"`
	ClientID      string    `json:"client_id"`
	InstrumentID  string    `gorm:"index" json:"instrument_id"`
	Kind          string    `json:"kind"` // BUY or SELL
	Date          time.Time `json:"date"`
	Quantity      float64   `json:"quantity"` // always positive, direction comes from Kind
	UnitPrice     float64   `json:"unit_price"`
	Commission    float64   `json:"commission"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Contract struct {
	gorm.Model                `json:"-"`
	ContractID                string    `gorm:"uniqueIndex" json:"contract_id"`
	ClientID                  string    `json:"client_id"`
	Description               string    `json:"description"`
	StartDate                 time.Time `json:"start_date"`
	DurationMonths            int       `json:"duration_months"`
	InitialAmount             float64   `json:"initial_amount"`
	Currency                  string    `json:"currency"`        // ARS or USD
	AdjustmentMode            string    `json:"adjustment_mode"` // INDEXED or FIXED
	AdjustmentFrequencyMonths int       `json:"adjustment_frequency_months"`
	Active                    bool      `json:"active"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}
