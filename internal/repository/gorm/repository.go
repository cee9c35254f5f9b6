package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pricing/internal/models"
	"pricing/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn returns tx when the caller is inside a transaction.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// --- features ---------------------------------------------------------------

func (s *Store) LatestFeatures(ctx context.Context, sku, vendorID string) (*models.FeatureSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FeatureSnapshot
	err := s.db.WithContext(ctx).
		Where("sku = ? AND vendor_id = ?", sku, vendorID).
		Order("date desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestFeatureDate(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FeatureSnapshot
	err := s.db.WithContext(ctx).Select("id", "date").Order("date desc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	day := models.Day(item.Date)
	return &day, nil
}

func (s *Store) ListFeatureKeys(ctx context.Context, date time.Time) ([]repository.Key, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var keys []repository.Key
	err := s.db.WithContext(ctx).
		Model(&models.FeatureSnapshot{}).
		Distinct("sku", "vendor_id").
		Where("date = ?", models.Day(date)).
		Order("sku asc").
		Order("vendor_id asc").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) ListAllFeatures(ctx context.Context) ([]models.FeatureSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FeatureSnapshot
	err := s.db.WithContext(ctx).
		Order("date asc").
		Order("sku asc").
		Order("vendor_id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.FeatureSnapshot{}).
		Where("date = ?", models.Day(date)).
		Distinct("sku").
		Count(&total).Error
	return total, err
}

func (s *Store) UpsertFeatures(ctx context.Context, items []models.FeatureSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].Date = models.Day(items[i].Date)
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "vendor_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_daily_sales_7d",
			"avg_daily_sales_30d",
			"last_price",
			"current_price",
			"base_price",
			"cost_price",
			"inventory",
			"ageing_days",
			"restock_eta_days",
			"views_7d",
			"views_30d",
			"add_to_cart_7d",
			"conv_rate_7d",
			"promo_flag",
			"other_features_json",
			"updated_at",
		}),
	}), items, 200)
}

// --- vendor rules -----------------------------------------------------------

func (s *Store) GetVendorRule(ctx context.Context, sku, vendorID string) (*models.VendorRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.VendorRule
	err := s.db.WithContext(ctx).Where("sku = ? AND vendor_id = ?", sku, vendorID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertVendorRule(ctx context.Context, item *models.VendorRule) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_margin_pct",
			"max_discount_pct",
			"max_daily_price_move_pct",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- elasticity -------------------------------------------------------------

func (s *Store) GetElasticity(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ElasticityCoeff
	err := s.db.WithContext(ctx).Where("sku = ? AND vendor_id = ?", sku, vendorID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertElasticity(ctx context.Context, item *models.ElasticityCoeff) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.LastTrainedAt.IsZero() {
		item.LastTrainedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"elasticity",
			"r2",
			"p_value_price",
			"n_obs",
			"last_trained_at",
		}),
	}).Create(item).Error
}

func (s *Store) CountElasticity(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ElasticityCoeff{}).Count(&total).Error
	return total, err
}

func (s *Store) CountDistinctElasticitySKUs(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ElasticityCoeff{}).Distinct("sku").Count(&total).Error
	return total, err
}

// --- orders -----------------------------------------------------------------

func (s *Store) InsertOrders(ctx context.Context, items []models.Order) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 500)
}

func (s *Store) ListPricePoints(ctx context.Context, sku, vendorID string, since *time.Time) ([]repository.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("price_paid AS price, SUM(units) AS units, MAX(promo_flag) AS promo_flag").
		Where("sku = ? AND vendor_id = ?", sku, vendorID)
	if since != nil && !since.IsZero() {
		query = query.Where("order_ts >= ?", *since)
	}
	var points []repository.PricePoint
	err := query.
		Group("DATE(order_ts)").
		Group("price_paid").
		Having("SUM(units) > 0").
		Order("DATE(order_ts) asc").
		Order("price_paid asc").
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) ListOrderKeys(ctx context.Context) ([]repository.Key, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var keys []repository.Key
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("sku", "vendor_id").
		Order("sku asc").
		Order("vendor_id asc").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

type dailySalesRow struct {
	SKU      string  `gorm:"column:sku"`
	VendorID string  `gorm:"column:vendor_id"`
	Day      string  `gorm:"column:day"`
	Units    float64 `gorm:"column:units"`
	AvgPrice float64 `gorm:"column:avg_price"`
}

func (s *Store) ListDailySales(ctx context.Context, from, to time.Time) ([]repository.DailySales, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []dailySalesRow
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("sku, vendor_id, DATE(order_ts) AS day, SUM(units) AS units, AVG(price_paid) AS avg_price").
		Where("order_ts >= ? AND order_ts < ?", from, to).
		Group("sku").
		Group("vendor_id").
		Group("DATE(order_ts)").
		Order("sku asc").
		Order("vendor_id asc").
		Order("day asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]repository.DailySales, 0, len(rows))
	for _, row := range rows {
		day, err := parseDay(row.Day)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.DailySales{
			SKU:      row.SKU,
			VendorID: row.VendorID,
			Day:      day,
			Units:    row.Units,
			AvgPrice: row.AvgPrice,
		})
	}
	return out, nil
}

type unitsRow struct {
	SKU      string  `gorm:"column:sku"`
	VendorID string  `gorm:"column:vendor_id"`
	Units    float64 `gorm:"column:units"`
}

func (s *Store) SumUnitsByKey(ctx context.Context, from, to time.Time) (map[repository.Key]float64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []unitsRow
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("sku, vendor_id, SUM(units) AS units").
		Where("order_ts >= ? AND order_ts < ?", from, to).
		Group("sku").
		Group("vendor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[repository.Key]float64, len(rows))
	for _, row := range rows {
		out[repository.Key{SKU: row.SKU, VendorID: row.VendorID}] = row.Units
	}
	return out, nil
}

// --- suggestions ------------------------------------------------------------

func (s *Store) InsertSuggestion(ctx context.Context, item *models.PriceSuggestion) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.SuggestionDate = models.Day(item.SuggestionDate)
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) LatestSuggestion(ctx context.Context, sku, vendorID string) (*models.PriceSuggestion, error) {
	return s.LatestSuggestionTx(ctx, nil, sku, vendorID)
}

func (s *Store) LatestSuggestionTx(ctx context.Context, tx *gorm.DB, sku, vendorID string) (*models.PriceSuggestion, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceSuggestion
	err := s.conn(ctx, tx).
		Where("sku = ? AND vendor_id = ?", sku, vendorID).
		Order("created_at desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestSuggestionAtPriceTx(ctx context.Context, tx *gorm.DB, sku, vendorID string, price decimal.Decimal) (*models.PriceSuggestion, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceSuggestion
	err := s.conn(ctx, tx).
		Where("sku = ? AND vendor_id = ? AND suggested_price = ?", sku, vendorID, price).
		Order("created_at desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateSuggestionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.conn(ctx, tx).
		Model(&models.PriceSuggestion{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Store) ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PriceSuggestion
	err := s.db.WithContext(ctx).
		Where("suggestion_date = ?", models.Day(date)).
		Order("sku asc").
		Order("vendor_id asc").
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListSuggestionKeys returns keys with a suggestion dated within [from, to].
func (s *Store) ListSuggestionKeys(ctx context.Context, from, to time.Time) ([]repository.Key, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var keys []repository.Key
	err := s.db.WithContext(ctx).
		Model(&models.PriceSuggestion{}).
		Distinct("sku", "vendor_id").
		Where("suggestion_date >= ? AND suggestion_date <= ?", models.Day(from), models.Day(to)).
		Order("sku asc").
		Order("vendor_id asc").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) CountDistinctSuggestionSKUs(ctx context.Context, date time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.PriceSuggestion{}).
		Where("suggestion_date = ?", models.Day(date)).
		Distinct("sku").
		Count(&total).Error
	return total, err
}

// --- feedback ---------------------------------------------------------------

func (s *Store) InsertFeedbackTx(ctx context.Context, tx *gorm.DB, item *models.PriceFeedback) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

type actionCountRow struct {
	Action string `gorm:"column:action"`
	Total  int64  `gorm:"column:total"`
}

func (s *Store) CountFeedbackByAction(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return map[string]int64{}, nil
	}
	var rows []actionCountRow
	err := s.db.WithContext(ctx).
		Model(&models.PriceFeedback{}).
		Select("action, COUNT(*) AS total").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Action] = row.Total
	}
	return out, nil
}

// --- monitoring metrics -----------------------------------------------------

func (s *Store) InsertMetrics(ctx context.Context, items []models.MonitoringMetric) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].Date = models.Day(items[i].Date)
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) metricsQuery(ctx context.Context, params repository.ListMetricsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.MonitoringMetric{})
	if params.Date != nil && !params.Date.IsZero() {
		query = query.Where("date = ?", models.Day(*params.Date))
	}
	if params.ModelType != nil && strings.TrimSpace(*params.ModelType) != "" {
		query = query.Where("model_type = ?", strings.TrimSpace(*params.ModelType))
	}
	if params.MetricName != nil && strings.TrimSpace(*params.MetricName) != "" {
		query = query.Where("metric_name = ?", strings.TrimSpace(*params.MetricName))
	}
	if params.SKU != nil && strings.TrimSpace(*params.SKU) != "" {
		query = query.Where("sku = ?", strings.TrimSpace(*params.SKU))
	}
	return query
}

func (s *Store) ListMetrics(ctx context.Context, params repository.ListMetricsParams) ([]models.MonitoringMetric, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.metricsQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.MonitoringMetric
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMetrics(ctx context.Context, params repository.ListMetricsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.metricsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- prediction logs / model artifacts --------------------------------------

func (s *Store) InsertPredictionLog(ctx context.Context, item *models.PredictionLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) InsertModelArtifact(ctx context.Context, item *models.ModelArtifact) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) LatestModelArtifact(ctx context.Context, name string) (*models.ModelArtifact, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ModelArtifact
	err := s.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		Order("trained_at desc").
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- catalog signals (feature ETL inputs) -----------------------------------

func (s *Store) ListInventorySnapshots(ctx context.Context, date time.Time) ([]models.InventorySnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.InventorySnapshot
	err := s.db.WithContext(ctx).
		Where("snapshot_date = ?", models.Day(date)).
		Order("sku asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListProductAnalytics(ctx context.Context, from, to time.Time) ([]models.ProductAnalytics, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ProductAnalytics
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ?", models.Day(from), models.Day(to)).
		Order("sku asc").
		Order("date asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("setting_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("setting_key LIKE ?", pattern)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "setting_key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("setting_key LIKE ?", pattern)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// parseDay accepts the DATE() output of every supported driver: a bare
// "2006-01-02" or an RFC3339 timestamp.
func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 10 {
		return time.Time{}, fmt.Errorf("unexpected day value %q", raw)
	}
	day, err := time.Parse("2006-01-02", raw[:10])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return day, nil
}
