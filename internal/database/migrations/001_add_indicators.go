package migrations

import (
	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"gorm.io/gorm"
)

// AddIndicators creates the economic indicator table and its lookup indexes
func AddIndicators(db *gorm.DB) error {
	if err := db.AutoMigrate(&indicators.Indicator{}); err != nil {
		return err
	}

	// Series loads filter by type and order by date; keep that path indexed.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_indicators_type
		 ON indicators(type)`,

		`CREATE INDEX IF NOT EXISTS idx_indicators_type_date_asc
		 ON indicators(type, date)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
