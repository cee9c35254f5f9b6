package models

import "time"

const (
	GlobalKey = "_global_"

	ModelTypeDemand     = "demand"
	ModelTypeElasticity = "elasticity"
	ModelTypeCoverage   = "coverage"
)

// MonitoringMetric is an append-only time series row. Aggregates use GlobalKey
// for both sku and vendor_id.
type MonitoringMetric struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Date        time.Time `gorm:"type:date;not null;index:idx_metrics_date_type"`
	SKU         string    `gorm:"column:sku;type:varchar(64);not null;index"`
	VendorID    string    `gorm:"type:varchar(64);not null"`
	ModelType   string    `gorm:"type:varchar(20);not null;index:idx_metrics_date_type"`
	MetricName  string    `gorm:"type:varchar(64);not null;index"`
	MetricValue float64   `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (MonitoringMetric) TableName() string {
	return "monitoring_metrics"
}
