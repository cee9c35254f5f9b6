package models

import (
	"time"

	"gorm.io/datatypes"
)

// PredictionLog is a write-only audit trail of optimizer decisions.
type PredictionLog struct {
	ID                uint64         `gorm:"primaryKey;autoIncrement"`
	SKU               string         `gorm:"column:sku;type:varchar(64);not null;index"`
	VendorID          string         `gorm:"type:varchar(64);not null"`
	SuggestionID      uint64         `gorm:"index"`
	ModelType         string         `gorm:"type:varchar(20);not null"`
	InputFeaturesJSON datatypes.JSON `gorm:"column:input_features_json"`
	OutputJSON        datatypes.JSON `gorm:"column:output_json"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index"`
}

func (PredictionLog) TableName() string {
	return "prediction_logs"
}
