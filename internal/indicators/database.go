package indicators

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetSeries returns every observation of the given indicator type in
// chronological order.
func (d *Database) GetSeries(indicatorType string) ([]Point, error) {
	var rows []Indicator
	if err := d.db.Where("type = ?", indicatorType).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch indicator series %s: %w", indicatorType, err)
	}

	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		points = append(points, Point{Date: row.Date, Value: row.Value})
	}
	return points, nil
}

// SaveObservation appends an observation, overwriting the value if the
// (type, date) pair already exists.
func (d *Database) SaveObservation(obs *Indicator) error {
	var existing Indicator
	err := d.db.Where("type = ? AND date = ?", obs.Type, obs.Date).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return d.db.Create(obs).Error
		}
		return fmt.Errorf("failed to look up indicator observation: %w", err)
	}

	existing.Value = obs.Value
	return d.db.Save(&existing).Error
}
