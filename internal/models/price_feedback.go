package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceFeedback is append-only.
type PriceFeedback struct {
	ID             uint64           `gorm:"primaryKey;autoIncrement"`
	VendorID       string           `gorm:"type:varchar(64);not null;index"`
	SKU            string           `gorm:"column:sku;type:varchar(64);not null;index"`
	SuggestedPrice decimal.Decimal  `gorm:"type:numeric(20,4);not null"`
	Action         string           `gorm:"type:varchar(20);not null;index"`
	CustomPrice    *decimal.Decimal `gorm:"type:numeric(20,4)"`
	Timestamp      time.Time        `gorm:"not null"`
	SuggestionID   *uint64          `gorm:"index"`
	CreatedAt      time.Time        `gorm:"autoCreateTime"`
}

func (PriceFeedback) TableName() string {
	return "price_feedback"
}
