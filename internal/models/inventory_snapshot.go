package models

import "time"

type InventorySnapshot struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	SKU            string     `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_inventory_sku_date"`
	SnapshotDate   time.Time  `gorm:"type:date;not null;uniqueIndex:idx_inventory_sku_date"`
	StockQty       int        `gorm:"not null;default:0"`
	AgeingDays     int        `gorm:"not null;default:0"`
	RestockEtaDate *time.Time `gorm:"type:date"`
}

func (InventorySnapshot) TableName() string {
	return "inventory_snapshots"
}
