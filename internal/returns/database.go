package returns

import (
	"fmt"

	"github.com/patriciomferrari/finanzas-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetTransactionsByInstrument returns an instrument's transactions in
// chronological order for cashflow stream construction.
func (d *Database) GetTransactionsByInstrument(instrumentID string) ([]types.Transaction, error) {
	var txs []types.Transaction
	if err := d.db.Where("instrument_id = ?", instrumentID).
		Order("date ASC, id ASC").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for instrument: %w", err)
	}
	return txs, nil
}
