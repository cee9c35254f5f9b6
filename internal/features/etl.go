// Package features materializes the daily sku_features_daily rows from raw
// orders, inventory snapshots and product analytics.
package features

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"pricing/internal/models"
	"pricing/internal/repository"
)

const (
	// CostRatio is the placeholder cost assumption applied to the mean price.
	CostRatio    = 0.7
	shortWindow  = 7
	longWindow   = 30
	lookbackDays = 30
)

type Store interface {
	ListDailySales(ctx context.Context, from, to time.Time) ([]repository.DailySales, error)
	ListInventorySnapshots(ctx context.Context, date time.Time) ([]models.InventorySnapshot, error)
	ListProductAnalytics(ctx context.Context, from, to time.Time) ([]models.ProductAnalytics, error)
	UpsertFeatures(ctx context.Context, items []models.FeatureSnapshot) error
}

type ETL struct {
	Repo   Store
	Logger *zap.Logger
	Now    func() time.Time
}

type Report struct {
	Date time.Time `json:"date"`
	Rows int       `json:"rows"`
}

// Run builds and upserts the feature rows for date (today when zero).
func (e *ETL) Run(ctx context.Context, date time.Time) (Report, error) {
	if date.IsZero() {
		date = e.now()
	}
	date = models.Day(date)
	report := Report{Date: date}
	if e == nil || e.Repo == nil {
		return report, nil
	}

	from := date.AddDate(0, 0, -lookbackDays)
	to := date.AddDate(0, 0, 1)
	sales, err := e.Repo.ListDailySales(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("load orders: %w", err)
	}
	inventory, err := e.Repo.ListInventorySnapshots(ctx, date)
	if err != nil {
		return report, fmt.Errorf("load inventory: %w", err)
	}
	analytics, err := e.Repo.ListProductAnalytics(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("load product analytics: %w", err)
	}
	if e.Logger != nil {
		if len(sales) == 0 {
			e.Logger.Warn("no orders data for feature etl", zap.Time("date", date))
		}
		if len(inventory) == 0 {
			e.Logger.Warn("no inventory data for feature etl", zap.Time("date", date))
		}
	}

	rows := Build(date, sales, inventory, analytics)
	if len(rows) > 0 {
		if err := e.Repo.UpsertFeatures(ctx, rows); err != nil {
			return report, fmt.Errorf("upsert features: %w", err)
		}
	}
	report.Rows = len(rows)
	if e.Logger != nil {
		e.Logger.Info("feature etl finished", zap.Time("date", date), zap.Int("rows", report.Rows))
	}
	return report, nil
}

type analyticsAgg struct {
	views7d     int64
	addToCart7d int64
	convRates   []float64
	views30d    int64
}

// Build derives one row per key that sold on date. Sales averages roll over the
// key's trailing sales days (7 and 30 rows, fewer when history is short);
// analytics are per sku. Missing inventory or analytics become zero.
func Build(date time.Time, sales []repository.DailySales, inventory []models.InventorySnapshot, analytics []models.ProductAnalytics) []models.FeatureSnapshot {
	date = models.Day(date)

	byKey := map[repository.Key][]repository.DailySales{}
	for _, s := range sales {
		key := repository.Key{SKU: s.SKU, VendorID: s.VendorID}
		byKey[key] = append(byKey[key], s)
	}

	stock := make(map[string]models.InventorySnapshot, len(inventory))
	for _, inv := range inventory {
		if models.Day(inv.SnapshotDate).Equal(date) {
			stock[inv.SKU] = inv
		}
	}

	since7 := date.AddDate(0, 0, -shortWindow)
	since30 := date.AddDate(0, 0, -lookbackDays)
	pa := map[string]*analyticsAgg{}
	for _, row := range analytics {
		d := models.Day(row.Date)
		if d.Before(since30) || d.After(date) {
			continue
		}
		agg := pa[row.SKU]
		if agg == nil {
			agg = &analyticsAgg{}
			pa[row.SKU] = agg
		}
		agg.views30d += row.Views
		if !d.Before(since7) {
			agg.views7d += row.Views
			agg.addToCart7d += row.AddToCart
			agg.convRates = append(agg.convRates, row.ConvRate)
		}
	}

	keys := make([]repository.Key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SKU != keys[j].SKU {
			return keys[i].SKU < keys[j].SKU
		}
		return keys[i].VendorID < keys[j].VendorID
	})

	out := make([]models.FeatureSnapshot, 0, len(keys))
	for _, key := range keys {
		days := byKey[key]
		sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
		idx := -1
		for i, d := range days {
			if models.Day(d.Day).Equal(date) {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		today := days[idx]
		price := decimal.NewFromFloat(today.AvgPrice).Round(4)

		row := models.FeatureSnapshot{
			SKU:              key.SKU,
			VendorID:         key.VendorID,
			Date:             date,
			AvgDailySales7d:  trailingMean(days[:idx+1], shortWindow),
			AvgDailySales30d: trailingMean(days[:idx+1], longWindow),
			LastPrice:        price,
			CurrentPrice:     price,
			BasePrice:        price,
			CostPrice:        price.Mul(decimal.NewFromFloat(CostRatio)).Round(4),
		}
		if inv, ok := stock[key.SKU]; ok {
			row.Inventory = inv.StockQty
			row.AgeingDays = inv.AgeingDays
			if inv.RestockEtaDate != nil {
				row.RestockEtaDays = int(models.Day(*inv.RestockEtaDate).Sub(date).Hours() / 24)
			}
		}
		if agg := pa[key.SKU]; agg != nil {
			row.Views7d = agg.views7d
			row.Views30d = agg.views30d
			row.AddToCart7d = agg.addToCart7d
			if len(agg.convRates) > 0 {
				row.ConvRate7d = stat.Mean(agg.convRates, nil)
			}
		}
		out = append(out, row)
	}
	return out
}

// trailingMean averages the units of the last n rows of days.
func trailingMean(days []repository.DailySales, n int) float64 {
	if len(days) == 0 {
		return 0
	}
	if len(days) > n {
		days = days[len(days)-n:]
	}
	units := make([]float64, len(days))
	for i, d := range days {
		units[i] = d.Units
	}
	return stat.Mean(units, nil)
}

func (e *ETL) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
