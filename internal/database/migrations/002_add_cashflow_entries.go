package migrations

import (
	"github.com/patriciomferrari/finanzas-api/internal/rentals"
	"gorm.io/gorm"
)

// AddCashflowEntries creates the cash-flow schedule table and its indexes
func AddCashflowEntries(db *gorm.DB) error {
	if err := db.AutoMigrate(&rentals.CashflowEntry{}); err != nil {
		return err
	}

	// Schedules are always read whole per contract, ordered by month.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_cashflow_entries_contract
		 ON cashflow_entries(contract_id)`,

		`CREATE INDEX IF NOT EXISTS idx_cashflow_entries_contract_month
		 ON cashflow_entries(contract_id, month_index)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
