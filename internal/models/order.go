package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one realized sale line. Written by the storefront; read by the
// elasticity fit, monitoring and the feature ETL.
type Order struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	OrderTS   time.Time       `gorm:"column:order_ts;not null;index"`
	SKU       string          `gorm:"column:sku;type:varchar(64);not null;index:idx_orders_key"`
	VendorID  string          `gorm:"type:varchar(64);not null;index:idx_orders_key"`
	Units     int             `gorm:"not null"`
	PricePaid decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	PromoFlag int             `gorm:"not null;default:0"`
}

func (Order) TableName() string {
	return "orders"
}
