package database

import (
	"fmt"
	"os"

	"github.com/patriciomferrari/finanzas-api/internal/database/migrations"
	"github.com/patriciomferrari/finanzas-api/internal/positions"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase() (*gorm.DB, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "finanzas.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddIndicators(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddCashflowEntries(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Transaction{},
		&types.Contract{},
		&positions.PositionSnapshot{},
		&positions.RealizedGainRecord{},
		&positions.OpenPositionRecord{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
