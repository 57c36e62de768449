package indicators

import (
	"time"

	"gorm.io/gorm"
)

type Indicator struct {
	gorm.Model `json:"-"`
	Type       string    `gorm:"uniqueIndex:idx_indicators_type_date" json:"type"` // IPC or USD_ARS
	Date       time.Time `gorm:"uniqueIndex:idx_indicators_type_date" json:"date"`
	Value      float64   `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ObservationRequest struct {
	Type  string    `json:"type" binding:"required"`
	Date  time.Time `json:"date" binding:"required"`
	Value float64   `json:"value"`
}
