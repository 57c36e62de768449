package rentals

import (
	"errors"
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

func (d *Database) CreateContract(contract *types.Contract) error {
	return d.db.Create(contract).Error
}

func (d *Database) GetContract(contractID string) (*types.Contract, error) {
	var contract types.Contract
	if err := d.db.Where("contract_id = ?", contractID).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch contract: %w", err)
	}
	return &contract, nil
}

func (d *Database) GetActiveContracts() ([]types.Contract, error) {
	var contracts []types.Contract
	if err := d.db.Where("active = ?", true).Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch active contracts: %w", err)
	}
	return contracts, nil
}

// ReplaceSchedule swaps a contract's schedule atomically: delete every
// existing row for the contract, then bulk-insert the new ones, inside a
// single transaction so readers never observe a partial schedule.
func (d *Database) ReplaceSchedule(contractID string, entries []CashflowEntry) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("contract_id = ?", contractID).Delete(&CashflowEntry{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete previous schedule: %w", err)
	}

	if len(entries) > 0 {
		if err := tx.Create(&entries).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert schedule: %w", err)
		}
	}

	return tx.Commit().Error
}

// GetSchedule returns a contract's schedule ordered by month index.
func (d *Database) GetSchedule(contractID string) ([]CashflowEntry, error) {
	var entries []CashflowEntry
	if err := d.db.Where("contract_id = ?", contractID).
		Order("month_index ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	return entries, nil
}
