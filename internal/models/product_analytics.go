package models

import "time"

type ProductAnalytics struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SKU         string    `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_analytics_sku_date"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:idx_analytics_sku_date"`
	Views       int64     `gorm:"not null;default:0"`
	AddToCart   int64     `gorm:"not null;default:0"`
	Conversions int64     `gorm:"not null;default:0"`
	ConvRate    float64   `gorm:"not null;default:0"`
}

func (ProductAnalytics) TableName() string {
	return "product_analytics"
}
