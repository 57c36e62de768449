package types

import "time"

// PositionSnapshotResponse represents the response from the positions service
type PositionSnapshotResponse struct {
	SnapshotID        string    `json:"snapshot_id"`
	InstrumentID      string    `json:"instrument_id"`
	TotalRealizedGain float64   `json:"total_realized_gain"`
	RealizedCount     int       `json:"realized_count"`
	OpenCount         int       `json:"open_count"`
	UnmatchedQuantity float64   `json:"unmatched_quantity"`
	ComputedAt        time.Time `json:"computed_at"`
}

// ScheduleResponse represents the response from the rentals service
type ScheduleResponse struct {
	ContractID  string    `json:"contract_id"`
	Months      int       `json:"months"`
	GeneratedAt time.Time `json:"generated_at"`
}
