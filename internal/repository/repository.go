package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pricing/internal/models"
)

// Key identifies one priced unit.
type Key struct {
	SKU      string `json:"sku"`
	VendorID string `json:"vendor_id"`
}

func (k Key) String() string {
	return k.SKU + "|" + k.VendorID
}

// LockName is the lock shared by every writer of a key's suggestion state.
func (k Key) LockName() string {
	return "key:" + k.String()
}

type FeatureRepository interface {
	// LatestFeatures returns the most recent snapshot for the key, or nil.
	LatestFeatures(ctx context.Context, sku, vendorID string) (*models.FeatureSnapshot, error)
	LatestFeatureDate(ctx context.Context) (*time.Time, error)
	ListFeatureKeys(ctx context.Context, date time.Time) ([]Key, error)
	ListAllFeatures(ctx context.Context) ([]models.FeatureSnapshot, error)
	CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error)
	UpsertFeatures(ctx context.Context, items []models.FeatureSnapshot) error
}

type VendorRuleRepository interface {
	GetVendorRule(ctx context.Context, sku, vendorID string) (*models.VendorRule, error)
	UpsertVendorRule(ctx context.Context, item *models.VendorRule) error
}

type ElasticityRepository interface {
	GetElasticity(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error)
	UpsertElasticity(ctx context.Context, item *models.ElasticityCoeff) error
	CountElasticity(ctx context.Context) (int64, error)
	CountDistinctElasticitySKUs(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	InsertOrders(ctx context.Context, items []models.Order) error
	// ListPricePoints aggregates orders by day and price point, keeping only
	// groups with positive units. since == nil means full history.
	ListPricePoints(ctx context.Context, sku, vendorID string, since *time.Time) ([]PricePoint, error)
	ListOrderKeys(ctx context.Context) ([]Key, error)
	// ListDailySales aggregates orders in [from, to) per key and day.
	ListDailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
	SumUnitsByKey(ctx context.Context, from, to time.Time) (map[Key]float64, error)
}

type SuggestionRepository interface {
	InsertSuggestion(ctx context.Context, item *models.PriceSuggestion) error
	LatestSuggestion(ctx context.Context, sku, vendorID string) (*models.PriceSuggestion, error)
	LatestSuggestionTx(ctx context.Context, tx *gorm.DB, sku, vendorID string) (*models.PriceSuggestion, error)
	LatestSuggestionAtPriceTx(ctx context.Context, tx *gorm.DB, sku, vendorID string, price decimal.Decimal) (*models.PriceSuggestion, error)
	UpdateSuggestionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error
	ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error)
	ListSuggestionKeys(ctx context.Context, from, to time.Time) ([]Key, error)
	CountDistinctSuggestionSKUs(ctx context.Context, date time.Time) (int64, error)
}

type FeedbackRepository interface {
	InsertFeedbackTx(ctx context.Context, tx *gorm.DB, item *models.PriceFeedback) error
	CountFeedbackByAction(ctx context.Context) (map[string]int64, error)
}

type MetricRepository interface {
	InsertMetrics(ctx context.Context, items []models.MonitoringMetric) error
	ListMetrics(ctx context.Context, params ListMetricsParams) ([]models.MonitoringMetric, error)
	CountMetrics(ctx context.Context, params ListMetricsParams) (int64, error)
}

type PredictionLogRepository interface {
	InsertPredictionLog(ctx context.Context, item *models.PredictionLog) error
}

type ModelArtifactRepository interface {
	InsertModelArtifact(ctx context.Context, item *models.ModelArtifact) error
	LatestModelArtifact(ctx context.Context, name string) (*models.ModelArtifact, error)
}

type CatalogSignalRepository interface {
	ListInventorySnapshots(ctx context.Context, date time.Time) ([]models.InventorySnapshot, error)
	ListProductAnalytics(ctx context.Context, from, to time.Time) ([]models.ProductAnalytics, error)
}

type SystemSettingRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// Repository is the unified store used by services and jobs.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	FeatureRepository
	VendorRuleRepository
	ElasticityRepository
	OrderRepository
	SuggestionRepository
	FeedbackRepository
	MetricRepository
	PredictionLogRepository
	ModelArtifactRepository
	CatalogSignalRepository
	SystemSettingRepository
}

// PricePoint is one (day, price) group of realized orders.
type PricePoint struct {
	Price     float64 `gorm:"column:price"`
	Units     float64 `gorm:"column:units"`
	PromoFlag float64 `gorm:"column:promo_flag"`
}

type DailySales struct {
	SKU      string    `gorm:"column:sku"`
	VendorID string    `gorm:"column:vendor_id"`
	Day      time.Time `gorm:"-"`
	Units    float64   `gorm:"column:units"`
	AvgPrice float64   `gorm:"column:avg_price"`
}

type ListMetricsParams struct {
	Limit      int
	Offset     int
	Date       *time.Time
	ModelType  *string
	MetricName *string
	SKU        *string
	OrderBy    string
	Asc        *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
