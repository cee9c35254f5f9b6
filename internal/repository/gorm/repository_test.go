package gormrepository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pricing/internal/config"
	"pricing/internal/db"
	"pricing/internal/models"
	"pricing/internal/repository"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(config.DBConfig{Driver: db.DriverSQLite, DSN: "file:" + name + "?mode=memory&cache=shared"})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn.Gorm)
}

func TestMissingRowsAreNil(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	feat, err := s.LatestFeatures(ctx, "A", "v1")
	if err != nil || feat != nil {
		t.Fatalf("features=%v err=%v want nil,nil", feat, err)
	}
	rule, err := s.GetVendorRule(ctx, "A", "v1")
	if err != nil || rule != nil {
		t.Fatalf("rule=%v err=%v want nil,nil", rule, err)
	}
	coef, err := s.GetElasticity(ctx, "A", "v1")
	if err != nil || coef != nil {
		t.Fatalf("coef=%v err=%v want nil,nil", coef, err)
	}
	date, err := s.LatestFeatureDate(ctx)
	if err != nil || date != nil {
		t.Fatalf("date=%v err=%v want nil,nil", date, err)
	}
	counts, err := s.CountFeedbackByAction(ctx)
	if err != nil || len(counts) != 0 {
		t.Fatalf("counts=%v err=%v want empty", counts, err)
	}
}

func TestUpsertElasticityKeepsOneRow(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.UpsertElasticity(ctx, &models.ElasticityCoeff{SKU: "A", VendorID: "v1", Elasticity: -1.2, R2: 0.5, NObs: 12}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertElasticity(ctx, &models.ElasticityCoeff{SKU: "A", VendorID: "v1", Elasticity: -2.1, R2: 0.8, NObs: 20}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	total, err := s.CountElasticity(ctx)
	if err != nil || total != 1 {
		t.Fatalf("count=%d err=%v want=1", total, err)
	}
	got, err := s.GetElasticity(ctx, "A", "v1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Elasticity != -2.1 || got.NObs != 20 {
		t.Fatalf("coef=%+v want latest fit", got)
	}
}

func TestPricePointsGroupByDayAndPrice(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{OrderTS: day1, SKU: "A", VendorID: "v1", Units: 2, PricePaid: decimal.NewFromInt(10)},
		{OrderTS: day1.Add(time.Hour), SKU: "A", VendorID: "v1", Units: 3, PricePaid: decimal.NewFromInt(10), PromoFlag: 1},
		{OrderTS: day1, SKU: "A", VendorID: "v1", Units: 1, PricePaid: decimal.NewFromInt(12)},
		{OrderTS: day2, SKU: "A", VendorID: "v1", Units: 0, PricePaid: decimal.NewFromInt(11)},
		{OrderTS: day2, SKU: "B", VendorID: "v1", Units: 4, PricePaid: decimal.NewFromInt(5)},
	}
	if err := s.InsertOrders(ctx, orders); err != nil {
		t.Fatalf("insert: %v", err)
	}
	points, err := s.ListPricePoints(ctx, "A", "v1", nil)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points=%+v want 2 (zero-unit group dropped)", points)
	}
	if points[0].Price != 10 || points[0].Units != 5 || points[0].PromoFlag != 1 {
		t.Fatalf("points[0]=%+v want price=10 units=5 promo=1", points[0])
	}

	keys, err := s.ListOrderKeys(ctx)
	if err != nil || len(keys) != 2 {
		t.Fatalf("keys=%v err=%v want 2", keys, err)
	}

	sales, err := s.ListDailySales(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("sales=%+v want 3 rows", sales)
	}
	if !sales[0].Day.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || sales[0].Units != 6 {
		t.Fatalf("sales[0]=%+v", sales[0])
	}

	units, err := s.SumUnitsByKey(ctx, day2.Add(-time.Hour), day2.Add(time.Hour))
	if err != nil {
		t.Fatalf("sum units: %v", err)
	}
	if units[repository.Key{SKU: "B", VendorID: "v1"}] != 4 {
		t.Fatalf("units=%v want B=4", units)
	}
}

func TestFeedbackTransactionLinksSuggestion(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	older := &models.PriceSuggestion{
		PublicID: "s-1", SKU: "A", VendorID: "v1", SuggestionDate: models.Day(now),
		CurrentPrice: decimal.NewFromInt(100), SuggestedPrice: decimal.NewFromInt(106),
		Status: models.SuggestionPending, CreatedAt: now,
	}
	newer := &models.PriceSuggestion{
		PublicID: "s-2", SKU: "A", VendorID: "v1", SuggestionDate: models.Day(now),
		CurrentPrice: decimal.NewFromInt(100), SuggestedPrice: decimal.NewFromInt(98),
		Status: models.SuggestionPending, CreatedAt: now.Add(time.Minute),
	}
	for _, it := range []*models.PriceSuggestion{older, newer} {
		if err := s.InsertSuggestion(ctx, it); err != nil {
			t.Fatalf("insert suggestion: %v", err)
		}
	}

	err := s.InTx(ctx, func(tx *gorm.DB) error {
		matched, err := s.LatestSuggestionAtPriceTx(ctx, tx, "A", "v1", decimal.NewFromInt(106))
		if err != nil {
			return err
		}
		if matched == nil || matched.ID != older.ID {
			t.Fatalf("matched=%v want id=%d", matched, older.ID)
		}
		id := matched.ID
		if err := s.InsertFeedbackTx(ctx, tx, &models.PriceFeedback{
			VendorID: "v1", SKU: "A", SuggestedPrice: decimal.NewFromInt(106),
			Action: "accept", Timestamp: now, SuggestionID: &id,
		}); err != nil {
			return err
		}
		latest, err := s.LatestSuggestionTx(ctx, tx, "A", "v1")
		if err != nil {
			return err
		}
		return s.UpdateSuggestionStatusTx(ctx, tx, latest.ID, models.SuggestionAccepted)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	latest, err := s.LatestSuggestion(ctx, "A", "v1")
	if err != nil || latest == nil {
		t.Fatalf("latest: %v %v", latest, err)
	}
	if latest.ID != newer.ID || latest.Status != models.SuggestionAccepted {
		t.Fatalf("latest=%d status=%s want id=%d ACCEPTED", latest.ID, latest.Status, newer.ID)
	}
	counts, err := s.CountFeedbackByAction(ctx)
	if err != nil || counts["accept"] != 1 {
		t.Fatalf("counts=%v err=%v want accept=1", counts, err)
	}
	n, err := s.CountDistinctSuggestionSKUs(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("distinct skus=%d err=%v want=1", n, err)
	}
}

func TestSystemSettingsUpsertAndPrefix(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, key := range []string{"feature.monitoring", "feature.price_batch", "other.flag"} {
		if err := s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: key, Value: datatypes.JSON(`true`)}); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}
	if err := s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.monitoring", Value: datatypes.JSON(`false`)}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	prefix := "feature."
	asc := true
	items, err := s.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix, Asc: &asc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Key != "feature.monitoring" {
		t.Fatalf("items=%+v", items)
	}
	if string(items[0].Value) != "false" {
		t.Fatalf("value=%s want=false", items[0].Value)
	}
}

func TestMetricsFilters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.MonitoringMetric{
		{Date: day, SKU: models.GlobalKey, VendorID: models.GlobalKey, ModelType: models.ModelTypeDemand, MetricName: "MAPE", MetricValue: 0.2},
		{Date: day, SKU: models.GlobalKey, VendorID: models.GlobalKey, ModelType: models.ModelTypeDemand, MetricName: "R2", MetricValue: 0.6},
		{Date: day.AddDate(0, 0, 1), SKU: "A", VendorID: "v1", ModelType: models.ModelTypeElasticity, MetricName: "elasticity_drift", MetricValue: 0.3},
	}
	if err := s.InsertMetrics(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}
	modelType := models.ModelTypeDemand
	params := repository.ListMetricsParams{Date: &day, ModelType: &modelType}
	items, err := s.ListMetrics(ctx, params)
	if err != nil || len(items) != 2 {
		t.Fatalf("items=%d err=%v want=2", len(items), err)
	}
	total, err := s.CountMetrics(ctx, repository.ListMetricsParams{})
	if err != nil || total != 3 {
		t.Fatalf("total=%d err=%v want=3", total, err)
	}
}
