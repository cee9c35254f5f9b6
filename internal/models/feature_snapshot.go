package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FeatureSnapshot is the daily materialized signal row for a (sku, vendor_id).
// Rows are immutable once written for a date; readers always take the latest.
type FeatureSnapshot struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement"`
	SKU      string    `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_features_key_date"`
	VendorID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_features_key_date"`
	Date     time.Time `gorm:"type:date;not null;uniqueIndex:idx_features_key_date;index"`

	AvgDailySales7d  float64 `gorm:"column:avg_daily_sales_7d;not null;default:0"`
	AvgDailySales30d float64 `gorm:"column:avg_daily_sales_30d;not null;default:0"`

	LastPrice    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	BasePrice    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	CostPrice    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`

	Inventory      int `gorm:"not null;default:0"`
	AgeingDays     int `gorm:"not null;default:0"`
	RestockEtaDays int `gorm:"not null;default:0"`

	Views7d     int64   `gorm:"column:views_7d;not null;default:0"`
	Views30d    int64   `gorm:"column:views_30d;not null;default:0"`
	AddToCart7d int64   `gorm:"column:add_to_cart_7d;not null;default:0"`
	ConvRate7d  float64 `gorm:"column:conv_rate_7d;not null;default:0"`
	PromoFlag   int     `gorm:"not null;default:0"`

	OtherFeaturesJSON datatypes.JSON `gorm:"column:other_features_json"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (FeatureSnapshot) TableName() string {
	return "sku_features_daily"
}
