package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SuggestionPending  = "PENDING"
	SuggestionAccepted = "ACCEPTED"
	SuggestionRejected = "REJECTED"
	SuggestionCustom   = "CUSTOM"
)

// PriceSuggestion is a persisted optimizer decision. Status is the only field
// that changes after insert.
type PriceSuggestion struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	PublicID       string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	SKU            string    `gorm:"column:sku;type:varchar(64);not null;index:idx_suggestions_key_created,priority:1"`
	VendorID       string    `gorm:"type:varchar(64);not null;index:idx_suggestions_key_created,priority:2"`
	SuggestionDate time.Time `gorm:"type:date;not null;index"`

	CurrentPrice    decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	SuggestedPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	ExpectedRevenue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0"`
	ExpectedProfit  decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0"`

	Elasticity float64 `gorm:"not null;default:0"`
	Confidence float64 `gorm:"not null;default:0"`
	Reason     string  `gorm:"type:text"`
	Status     string  `gorm:"type:varchar(16);not null;default:'PENDING';index"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_suggestions_key_created,priority:3"`
}

func (PriceSuggestion) TableName() string {
	return "price_suggestions"
}
