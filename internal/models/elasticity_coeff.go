package models

import "time"

type ElasticityCoeff struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	SKU           string    `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_elasticity_key"`
	VendorID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_elasticity_key"`
	Elasticity    float64   `gorm:"not null"`
	R2            float64   `gorm:"column:r2;not null;default:0"`
	PValuePrice   float64   `gorm:"not null;default:1"`
	NObs          int       `gorm:"column:n_obs;not null;default:0"`
	LastTrainedAt time.Time `gorm:"not null;index"`
}

func (ElasticityCoeff) TableName() string {
	return "elasticity_coeffs"
}
