package models

import "time"

// VendorRule holds per-key pricing policy. All values are percentages (10 = 10%).
type VendorRule struct {
	ID                   uint64  `gorm:"primaryKey;autoIncrement"`
	SKU                  string  `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_vendor_rules_key"`
	VendorID             string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_vendor_rules_key"`
	MinMarginPct         float64 `gorm:"not null;default:10"`
	MaxDiscountPct       float64 `gorm:"not null;default:50"`
	MaxDailyPriceMovePct float64 `gorm:"not null;default:20"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (VendorRule) TableName() string {
	return "vendor_rules"
}
