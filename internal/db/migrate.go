package db

import (
	"pricing/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		// external inputs
		&models.Order{},
		&models.InventorySnapshot{},
		&models.ProductAnalytics{},
		&models.FeatureSnapshot{},
		&models.VendorRule{},
		// decision + feedback loop
		&models.ElasticityCoeff{},
		&models.PriceSuggestion{},
		&models.PriceFeedback{},
		&models.PredictionLog{},
		&models.MonitoringMetric{},
		&models.ModelArtifact{},
		&models.SystemSetting{},
	)
}
