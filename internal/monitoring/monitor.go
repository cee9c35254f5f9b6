package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pricing/internal/alert"
	"pricing/internal/elasticity"
	"pricing/internal/models"
	"pricing/internal/repository"
	"pricing/internal/stats"
)

const (
	MetricElasticityDrift       = "elasticity_drift"
	MetricTotalSKUs             = "total_skus"
	MetricElasticityCoveragePct = "elasticity_coverage_pct"
	MetricSuggestionCoveragePct = "suggestion_coverage_pct"
)

type Store interface {
	ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error)
	ListSuggestionKeys(ctx context.Context, from, to time.Time) ([]repository.Key, error)
	CountDistinctSuggestionSKUs(ctx context.Context, date time.Time) (int64, error)
	SumUnitsByKey(ctx context.Context, from, to time.Time) (map[repository.Key]float64, error)
	CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error)
	CountDistinctElasticitySKUs(ctx context.Context) (int64, error)
	InsertMetrics(ctx context.Context, items []models.MonitoringMetric) error
}

// Refitter is the slice of the elasticity estimator the drift check needs.
type Refitter interface {
	FitKey(ctx context.Context, sku, vendorID string, since *time.Time) (elasticity.Result, error)
	Stored(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error)
	Save(ctx context.Context, sku, vendorID string, res elasticity.Result) error
}

type Thresholds struct {
	MaxMAPE                  float64
	MinR2                    float64
	MaxElasticityDrift       float64
	MinSuggestionCoveragePct float64
}

type Monitor struct {
	Repo       Store
	Elasticity Refitter
	Alerts     *alert.Dispatcher
	Thresholds Thresholds
	// DriftWindowDays selects keys with a suggestion in [date-N, date].
	DriftWindowDays int
	// DriftDataWindowDays limits the refit to recent orders; zero uses full history.
	DriftDataWindowDays int
	Concurrency         int
	Logger              *zap.Logger
	Now                 func() time.Time
}

type DemandCheck struct {
	Rows     int             `json:"rows"`
	Accuracy *stats.Accuracy `json:"accuracy,omitempty"`
}

type KeyDrift struct {
	SKU      string  `json:"sku"`
	VendorID string  `json:"vendor_id"`
	Drift    float64 `json:"drift"`
}

type DriftCheck struct {
	Keys     int        `json:"keys"`
	Compared int        `json:"compared"`
	Skipped  int        `json:"skipped"`
	Failed   int        `json:"failed"`
	Drifts   []KeyDrift `json:"drifts,omitempty"`
}

type CoverageCheck struct {
	TotalSKUs     int64   `json:"total_skus"`
	ElasticityPct float64 `json:"elasticity_coverage_pct"`
	SuggestionPct float64 `json:"suggestion_coverage_pct"`
}

type Report struct {
	Date      time.Time      `json:"date"`
	Demand    DemandCheck    `json:"demand"`
	Drift     DriftCheck     `json:"drift"`
	Coverage  *CoverageCheck `json:"coverage,omitempty"`
	Alerts    []alert.Alert  `json:"alerts,omitempty"`
	Delivered int            `json:"alerts_delivered"`
}

// RunDaily runs the three checks for date (yesterday when zero). The checks are
// independent: an error in one is collected and the rest still run.
func (m *Monitor) RunDaily(ctx context.Context, date time.Time) (Report, error) {
	if date.IsZero() {
		date = m.now().AddDate(0, 0, -1)
	}
	date = models.Day(date)
	report := Report{Date: date}
	if m == nil || m.Repo == nil {
		return report, nil
	}
	if m.Logger != nil {
		m.Logger.Info("monitoring started", zap.Time("date", date))
	}

	var errs []error
	demand, err := m.DemandErrors(ctx, date)
	if err != nil {
		errs = append(errs, fmt.Errorf("demand errors: %w", err))
	}
	report.Demand = demand

	drift, err := m.ElasticityDrift(ctx, date)
	if err != nil {
		errs = append(errs, fmt.Errorf("elasticity drift: %w", err))
	}
	report.Drift = drift

	coverage, err := m.Coverage(ctx, date)
	if err != nil {
		errs = append(errs, fmt.Errorf("coverage: %w", err))
	}
	report.Coverage = coverage

	report.Alerts = m.Evaluate(report)
	if m.Alerts != nil {
		report.Delivered = m.Alerts.Dispatch(ctx, report.Alerts)
	}

	if m.Logger != nil {
		m.Logger.Info("monitoring finished",
			zap.Time("date", date),
			zap.Int("demand_rows", demand.Rows),
			zap.Int("drift_compared", drift.Compared),
			zap.Int("drift_failed", drift.Failed),
			zap.Int("alerts", len(report.Alerts)),
		)
	}
	return report, errors.Join(errs...)
}

type predictionGroup struct {
	key     repository.Key
	revenue string
	price   string
}

// DemandErrors compares the date's suggestions with the units actually sold
// that day. Predicted units are expected_revenue / suggested_price; a key with
// no orders counts as zero actual units. No suggestions writes nothing.
func (m *Monitor) DemandErrors(ctx context.Context, date time.Time) (DemandCheck, error) {
	var out DemandCheck
	suggestions, err := m.Repo.ListSuggestionsByDate(ctx, date)
	if err != nil {
		return out, fmt.Errorf("list suggestions: %w", err)
	}
	if len(suggestions) == 0 {
		return out, nil
	}
	units, err := m.Repo.SumUnitsByKey(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return out, fmt.Errorf("sum units: %w", err)
	}

	seen := make(map[predictionGroup]struct{}, len(suggestions))
	actual := make([]float64, 0, len(suggestions))
	predicted := make([]float64, 0, len(suggestions))
	for _, s := range suggestions {
		if !s.SuggestedPrice.IsPositive() {
			continue
		}
		key := repository.Key{SKU: s.SKU, VendorID: s.VendorID}
		group := predictionGroup{key: key, revenue: s.ExpectedRevenue.String(), price: s.SuggestedPrice.String()}
		if _, dup := seen[group]; dup {
			continue
		}
		seen[group] = struct{}{}
		predicted = append(predicted, s.ExpectedRevenue.Div(s.SuggestedPrice).InexactFloat64())
		actual = append(actual, units[key])
	}
	out.Rows = len(actual)
	if out.Rows == 0 {
		return out, nil
	}

	acc := stats.Evaluate(actual, predicted)
	out.Accuracy = &acc
	values := acc.Map()
	rows := make([]models.MonitoringMetric, 0, len(values))
	for _, name := range []string{"MAPE", "RMSE", "R2"} {
		rows = append(rows, globalMetric(date, models.ModelTypeDemand, name, values[name]))
	}
	if err := m.Repo.InsertMetrics(ctx, rows); err != nil {
		return out, fmt.Errorf("insert demand metrics: %w", err)
	}
	return out, nil
}

// ElasticityDrift refits every key suggested in the trailing window, records
// |new - old| where a stored coefficient exists and overwrites it with the new
// fit. Keys without a stored coefficient are not seeded.
func (m *Monitor) ElasticityDrift(ctx context.Context, date time.Time) (DriftCheck, error) {
	var out DriftCheck
	if m.Elasticity == nil {
		return out, nil
	}
	from := date.AddDate(0, 0, -m.driftWindow())
	keys, err := m.Repo.ListSuggestionKeys(ctx, from, date)
	if err != nil {
		return out, fmt.Errorf("list suggestion keys: %w", err)
	}
	out.Keys = len(keys)

	var since *time.Time
	if m.DriftDataWindowDays > 0 {
		v := date.AddDate(0, 0, -m.DriftDataWindowDays)
		since = &v
	}

	var (
		mu   sync.Mutex
		rows []models.MonitoringMetric
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency())
	for _, key := range keys {
		key := key
		g.Go(func() error {
			drift, compared, err := m.refitKey(gctx, key, since)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				out.Failed++
				if m.Logger != nil {
					m.Logger.Warn("drift refit failed", zap.String("sku", key.SKU), zap.String("vendor_id", key.VendorID), zap.Error(err))
				}
			case !compared:
				out.Skipped++
			default:
				out.Compared++
				out.Drifts = append(out.Drifts, KeyDrift{SKU: key.SKU, VendorID: key.VendorID, Drift: drift})
				rows = append(rows, models.MonitoringMetric{
					Date:        date,
					SKU:         key.SKU,
					VendorID:    key.VendorID,
					ModelType:   models.ModelTypeElasticity,
					MetricName:  MetricElasticityDrift,
					MetricValue: drift,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(out.Drifts, func(i, j int) bool {
		if out.Drifts[i].SKU != out.Drifts[j].SKU {
			return out.Drifts[i].SKU < out.Drifts[j].SKU
		}
		return out.Drifts[i].VendorID < out.Drifts[j].VendorID
	})

	if len(rows) > 0 {
		if err := m.Repo.InsertMetrics(ctx, rows); err != nil {
			return out, fmt.Errorf("insert drift metrics: %w", err)
		}
	}
	return out, ctx.Err()
}

func (m *Monitor) refitKey(ctx context.Context, key repository.Key, since *time.Time) (float64, bool, error) {
	res, err := m.Elasticity.FitKey(ctx, key.SKU, key.VendorID, since)
	if errors.Is(err, elasticity.ErrNoData) || errors.Is(err, elasticity.ErrInsufficientVariation) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	old, err := m.Elasticity.Stored(ctx, key.SKU, key.VendorID)
	if err != nil {
		return 0, false, err
	}
	if old == nil {
		return 0, false, nil
	}
	drift := res.Elasticity - old.Elasticity
	if drift < 0 {
		drift = -drift
	}
	if err := m.Elasticity.Save(ctx, key.SKU, key.VendorID, res); err != nil {
		return 0, false, err
	}
	return drift, true, nil
}

// Coverage writes total_skus and the two coverage percentages for date. A date
// with no feature rows writes nothing and returns nil.
func (m *Monitor) Coverage(ctx context.Context, date time.Time) (*CoverageCheck, error) {
	total, err := m.Repo.CountDistinctFeatureSKUs(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("count feature skus: %w", err)
	}
	if total <= 0 {
		return nil, nil
	}
	withElasticity, err := m.Repo.CountDistinctElasticitySKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("count elasticity skus: %w", err)
	}
	withSuggestion, err := m.Repo.CountDistinctSuggestionSKUs(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("count suggestion skus: %w", err)
	}

	out := &CoverageCheck{
		TotalSKUs:     total,
		ElasticityPct: float64(withElasticity) * 100 / float64(total),
		SuggestionPct: float64(withSuggestion) * 100 / float64(total),
	}
	rows := []models.MonitoringMetric{
		globalMetric(date, models.ModelTypeCoverage, MetricTotalSKUs, float64(total)),
		globalMetric(date, models.ModelTypeCoverage, MetricElasticityCoveragePct, out.ElasticityPct),
		globalMetric(date, models.ModelTypeCoverage, MetricSuggestionCoveragePct, out.SuggestionPct),
	}
	if err := m.Repo.InsertMetrics(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert coverage metrics: %w", err)
	}
	return out, nil
}

// Evaluate turns a report into threshold alerts. A zero threshold disables its
// rule, except MinR2 which is compared as configured.
func (m *Monitor) Evaluate(r Report) []alert.Alert {
	th := m.Thresholds
	var out []alert.Alert
	if acc := r.Demand.Accuracy; acc != nil {
		if th.MaxMAPE > 0 && acc.MAPE > th.MaxMAPE {
			out = append(out, alert.Alert{
				Event: "demand_mape_high", Severity: alert.SeverityWarning,
				Metric: "MAPE", Value: acc.MAPE, Threshold: th.MaxMAPE, Date: r.Date,
			})
		}
		if acc.R2 < th.MinR2 {
			out = append(out, alert.Alert{
				Event: "demand_r2_low", Severity: alert.SeverityWarning,
				Metric: "R2", Value: acc.R2, Threshold: th.MinR2, Date: r.Date,
			})
		}
	}
	if th.MaxElasticityDrift > 0 {
		for _, d := range r.Drift.Drifts {
			if d.Drift <= th.MaxElasticityDrift {
				continue
			}
			out = append(out, alert.Alert{
				Event: "elasticity_drift_high", Severity: alert.SeverityCritical,
				SKU: d.SKU, VendorID: d.VendorID,
				Metric: MetricElasticityDrift, Value: d.Drift, Threshold: th.MaxElasticityDrift, Date: r.Date,
			})
		}
	}
	if c := r.Coverage; c != nil && th.MinSuggestionCoveragePct > 0 && c.SuggestionPct < th.MinSuggestionCoveragePct {
		out = append(out, alert.Alert{
			Event: "suggestion_coverage_low", Severity: alert.SeverityWarning,
			Metric: MetricSuggestionCoveragePct, Value: c.SuggestionPct, Threshold: th.MinSuggestionCoveragePct, Date: r.Date,
		})
	}
	return out
}

func globalMetric(date time.Time, modelType, name string, value float64) models.MonitoringMetric {
	return models.MonitoringMetric{
		Date:        date,
		SKU:         models.GlobalKey,
		VendorID:    models.GlobalKey,
		ModelType:   modelType,
		MetricName:  name,
		MetricValue: value,
	}
}

func (m *Monitor) driftWindow() int {
	if m.DriftWindowDays <= 0 {
		return 30
	}
	return m.DriftWindowDays
}

func (m *Monitor) concurrency() int {
	if m.Concurrency <= 0 {
		return 4
	}
	return m.Concurrency
}

func (m *Monitor) now() time.Time {
	if m != nil && m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}
