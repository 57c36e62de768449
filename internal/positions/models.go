package positions

import (
	"time"

	"gorm.io/gorm"
)

type PositionSnapshot struct {
	gorm.Model        `json:"-"`
	SnapshotID        string    `gorm:"uniqueIndex" json:"snapshot_id"`
	InstrumentID      string    `gorm:"index" json:"instrument_id"`
	TotalRealizedGain float64   `json:"total_realized_gain"`
	UnmatchedQuantity float64   `json:"unmatched_quantity"`
	ComputedAt        time.Time `json:"computed_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RealizedGainRecord is the persisted form of a RealizedGain event, keyed by
// (instrument_id, sequence) so the snapshot can be replaced deterministically.
type RealizedGainRecord struct {
	gorm.Model            `json:"-"`
	InstrumentID          string    `gorm:"index" json:"instrument_id"`
	Sequence              int       `json:"sequence"`
	SaleDate              time.Time `json:"sale_date"`
	QuantitySold          float64   `json:"quantity_sold"`
	SellUnitPrice         float64   `json:"sell_unit_price"`
	SellCommission        float64   `json:"sell_commission"`
	AvgCostBasisPrice     float64   `json:"avg_cost_basis_price"`
	ProratedBuyCommission float64   `json:"prorated_buy_commission"`
	GainAmount            float64   `json:"gain_amount"`
	GainPercent           float64   `json:"gain_percent"`
	Currency              string    `json:"currency"`
	UnmatchedQuantity     float64   `json:"unmatched_quantity"`
}

// OpenPositionRecord is the persisted form of an OpenPosition event. Open
// positions have no identity of their own; they are recomputed from scratch
// on every run.
type OpenPositionRecord struct {
	gorm.Model          `json:"-"`
	InstrumentID        string    `gorm:"index" json:"instrument_id"`
	Sequence            int       `json:"sequence"`
	OriginDate          time.Time `json:"origin_date"`
	Quantity            float64   `json:"quantity"`
	UnitPrice           float64   `json:"unit_price"`
	ProratedCommission  float64   `json:"prorated_commission"`
	Currency            string    `json:"currency"`
	OriginalLotQuantity float64   `json:"original_lot_quantity"`
}

// PositionReport is the read model returned to API clients.
type PositionReport struct {
	Snapshot      *PositionSnapshot    `json:"snapshot"`
	RealizedGains []RealizedGainRecord `json:"realized_gains"`
	OpenPositions []OpenPositionRecord `json:"open_positions"`
}
