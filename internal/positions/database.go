package positions

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

func (d *Database) CreateTransaction(tx *types.Transaction) error {
	return d.db.Create(tx).Error
}

// GetTransactionsByInstrument returns an instrument's transactions in
// insertion order. The matcher does its own chronological stable sort, so
// same-date transactions keep the order they were recorded in.
func (d *Database) GetTransactionsByInstrument(instrumentID string) ([]types.Transaction, error) {
	var txs []types.Transaction
	if err := d.db.Where("instrument_id = ?", instrumentID).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for instrument: %w", err)
	}
	return txs, nil
}

// ReplaceSnapshot atomically swaps an instrument's position snapshot: the
// previous snapshot and its event rows are deleted and the new ones inserted
// inside a single transaction, so readers never observe a partial result.
func (d *Database) ReplaceSnapshot(instrumentID string, snapshot *PositionSnapshot, realized []RealizedGainRecord, open []OpenPositionRecord) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("instrument_id = ?", instrumentID).Delete(&PositionSnapshot{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete previous snapshot: %w", err)
	}
	if err := tx.Where("instrument_id = ?", instrumentID).Delete(&RealizedGainRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete previous realized gains: %w", err)
	}
	if err := tx.Where("instrument_id = ?", instrumentID).Delete(&OpenPositionRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete previous open positions: %w", err)
	}

	if err := tx.Create(snapshot).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if len(realized) > 0 {
		if err := tx.Create(&realized).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save realized gains: %w", err)
		}
	}
	if len(open) > 0 {
		if err := tx.Create(&open).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save open positions: %w", err)
		}
	}

	return tx.Commit().Error
}

// GetSnapshot retrieves the latest snapshot for an instrument, or nil when
// none has been computed yet.
func (d *Database) GetSnapshot(instrumentID string) (*PositionSnapshot, error) {
	var snapshot PositionSnapshot
	if err := d.db.Where("instrument_id = ?", instrumentID).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch position snapshot: %w", err)
	}
	return &snapshot, nil
}

func (d *Database) GetRealizedGains(instrumentID string) ([]RealizedGainRecord, error) {
	var records []RealizedGainRecord
	if err := d.db.Where("instrument_id = ?", instrumentID).
		Order("sequence ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch realized gains: %w", err)
	}
	return records, nil
}

func (d *Database) GetOpenPositions(instrumentID string) ([]OpenPositionRecord, error) {
	var records []OpenPositionRecord
	if err := d.db.Where("instrument_id = ?", instrumentID).
		Order("sequence ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open positions: %w", err)
	}
	return records, nil
}
