package monitoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricing/internal/alert"
	"pricing/internal/elasticity"
	"pricing/internal/models"
	"pricing/internal/repository"
	"pricing/internal/stats"
)

var day = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func suggestion(sku string, price, revenue float64) models.PriceSuggestion {
	return models.PriceSuggestion{
		SKU:             sku,
		VendorID:        "v1",
		SuggestionDate:  day,
		SuggestedPrice:  decimal.NewFromFloat(price),
		ExpectedRevenue: decimal.NewFromFloat(revenue),
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestDemandErrorsJoinsSuggestionsWithOrders(t *testing.T) {
	repo := &stubRepo{
		suggestions: []models.PriceSuggestion{
			suggestion("a", 10, 100),
			suggestion("a", 10, 100),
			suggestion("b", 20, 200),
		},
		units: map[repository.Key]float64{
			{SKU: "a", VendorID: "v1"}: 8,
			{SKU: "b", VendorID: "v1"}: 12,
		},
	}
	m := &Monitor{Repo: repo}
	got, err := m.DemandErrors(context.Background(), day)
	if err != nil {
		t.Fatalf("demand errors: %v", err)
	}
	if got.Rows != 2 {
		t.Fatalf("rows=%d want=2 (duplicates collapse)", got.Rows)
	}
	if !almost(got.Accuracy.RMSE, 2) {
		t.Fatalf("rmse=%v want=2", got.Accuracy.RMSE)
	}
	if want := (2.0/8 + 2.0/12) / 2; math.Abs(got.Accuracy.MAPE-want) > 1e-4 {
		t.Fatalf("mape=%v want=%v", got.Accuracy.MAPE, want)
	}
	if w := repo.lastUnitsWindow; !w[0].Equal(day) || !w[1].Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("units window=%v", w)
	}
	rows := repo.metricsOf(models.ModelTypeDemand)
	if len(rows) != 3 {
		t.Fatalf("demand rows=%d want=3", len(rows))
	}
	for _, r := range rows {
		if r.SKU != models.GlobalKey || r.VendorID != models.GlobalKey || !r.Date.Equal(day) {
			t.Fatalf("row=%+v want global row on %v", r, day)
		}
	}
}

func TestDemandErrorsMissingOrdersCountAsZero(t *testing.T) {
	repo := &stubRepo{suggestions: []models.PriceSuggestion{suggestion("a", 10, 50)}}
	got, err := (&Monitor{Repo: repo}).DemandErrors(context.Background(), day)
	if err != nil {
		t.Fatalf("demand errors: %v", err)
	}
	if got.Rows != 1 || !almost(got.Accuracy.RMSE, 5) {
		t.Fatalf("got=%+v acc=%+v want rmse=5", got, got.Accuracy)
	}
}

func TestDemandErrorsNoSuggestionsWritesNothing(t *testing.T) {
	repo := &stubRepo{}
	got, err := (&Monitor{Repo: repo}).DemandErrors(context.Background(), day)
	if err != nil || got.Accuracy != nil || len(repo.metrics) != 0 {
		t.Fatalf("got=%+v err=%v metrics=%d", got, err, len(repo.metrics))
	}
}

func TestElasticityDriftRefitsAndOverwrites(t *testing.T) {
	k1 := repository.Key{SKU: "a", VendorID: "v1"}
	k2 := repository.Key{SKU: "b", VendorID: "v1"}
	k3 := repository.Key{SKU: "c", VendorID: "v1"}
	k4 := repository.Key{SKU: "d", VendorID: "v1"}
	repo := &stubRepo{suggestionKeys: []repository.Key{k1, k2, k3, k4}}
	ref := newStubRefitter()
	ref.fits[k1] = elasticity.Result{Elasticity: -1.8}
	ref.stored[k1] = -1.0
	ref.fits[k2] = elasticity.Result{Elasticity: -2.0}
	ref.errs[k3] = elasticity.ErrInsufficientVariation
	ref.errs[k4] = errors.New("db down")

	m := &Monitor{Repo: repo, Elasticity: ref, DriftDataWindowDays: 90}
	got, err := m.ElasticityDrift(context.Background(), day)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if got.Keys != 4 || got.Compared != 1 || got.Skipped != 2 || got.Failed != 1 {
		t.Fatalf("summary=%+v", got)
	}
	if len(got.Drifts) != 1 || got.Drifts[0].SKU != "a" || !almost(got.Drifts[0].Drift, 0.8) {
		t.Fatalf("drifts=%+v want a=0.8", got.Drifts)
	}
	if v, ok := ref.saved[k1]; !ok || v != -1.8 {
		t.Fatalf("k1 saved=%v,%v want=-1.8", v, ok)
	}
	if _, ok := ref.saved[k2]; ok {
		t.Fatalf("key without stored coefficient must not be seeded")
	}
	if !repo.lastKeysFrom.Equal(day.AddDate(0, 0, -30)) {
		t.Fatalf("keys from=%v want=%v", repo.lastKeysFrom, day.AddDate(0, 0, -30))
	}
	for _, since := range ref.since {
		if since == nil || !since.Equal(day.AddDate(0, 0, -90)) {
			t.Fatalf("since=%v want=%v", since, day.AddDate(0, 0, -90))
		}
	}
	rows := repo.metricsOf(models.ModelTypeElasticity)
	if len(rows) != 1 || rows[0].MetricName != MetricElasticityDrift || rows[0].SKU != "a" {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestCoverageZeroTotalEmitsNoRows(t *testing.T) {
	repo := &stubRepo{elasticitySKUs: 3, suggestionSKUs: 1}
	got, err := (&Monitor{Repo: repo}).Coverage(context.Background(), day)
	if err != nil || got != nil {
		t.Fatalf("got=%+v err=%v want nil,nil", got, err)
	}
	if len(repo.metrics) != 0 {
		t.Fatalf("metrics=%d want=0", len(repo.metrics))
	}
}

func TestCoveragePercentages(t *testing.T) {
	repo := &stubRepo{featureSKUs: 4, elasticitySKUs: 2, suggestionSKUs: 1}
	got, err := (&Monitor{Repo: repo}).Coverage(context.Background(), day)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if got.TotalSKUs != 4 || got.ElasticityPct != 50 || got.SuggestionPct != 25 {
		t.Fatalf("coverage=%+v", got)
	}
	want := map[string]float64{
		MetricTotalSKUs:             4,
		MetricElasticityCoveragePct: 50,
		MetricSuggestionCoveragePct: 25,
	}
	rows := repo.metricsOf(models.ModelTypeCoverage)
	if len(rows) != len(want) {
		t.Fatalf("rows=%d want=%d", len(rows), len(want))
	}
	for _, r := range rows {
		if want[r.MetricName] != r.MetricValue {
			t.Fatalf("%s=%v want=%v", r.MetricName, r.MetricValue, want[r.MetricName])
		}
	}
}

type recordingSender struct{ got []alert.Alert }

func (r *recordingSender) Send(ctx context.Context, a alert.Alert) error {
	r.got = append(r.got, a)
	return nil
}

func TestRunDailyIsolatesChecksAndAlerts(t *testing.T) {
	k1 := repository.Key{SKU: "a", VendorID: "v1"}
	repo := &stubRepo{
		suggestionsErr: errors.New("suggestions unavailable"),
		suggestionKeys: []repository.Key{k1},
		featureSKUs:    4,
		elasticitySKUs: 4,
		suggestionSKUs: 1,
	}
	ref := newStubRefitter()
	ref.fits[k1] = elasticity.Result{Elasticity: -3}
	ref.stored[k1] = -1

	sender := &recordingSender{}
	m := &Monitor{
		Repo:       repo,
		Elasticity: ref,
		Alerts:     &alert.Dispatcher{Senders: []alert.Sender{sender}},
		Thresholds: Thresholds{MaxMAPE: 0.5, MaxElasticityDrift: 1, MinSuggestionCoveragePct: 50},
	}
	report, err := m.RunDaily(context.Background(), day.Add(15*time.Hour))
	if err == nil {
		t.Fatalf("expected joined error from demand check")
	}
	if !report.Date.Equal(day) {
		t.Fatalf("date=%v want=%v", report.Date, day)
	}
	if report.Drift.Compared != 1 || report.Coverage == nil {
		t.Fatalf("other checks did not run: %+v", report)
	}
	events := map[string]bool{}
	for _, a := range sender.got {
		events[a.Event] = true
	}
	if len(sender.got) != 2 || !events["elasticity_drift_high"] || !events["suggestion_coverage_low"] {
		t.Fatalf("alerts=%+v", sender.got)
	}
	if report.Delivered != 2 {
		t.Fatalf("delivered=%d want=2", report.Delivered)
	}
}

func TestRunDailyDefaultsToYesterday(t *testing.T) {
	now := time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC)
	m := &Monitor{Repo: &stubRepo{}, Now: func() time.Time { return now }}
	report, err := m.RunDaily(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Date.Equal(day) {
		t.Fatalf("date=%v want=%v", report.Date, day)
	}
}

func TestEvaluateDemandThresholds(t *testing.T) {
	m := &Monitor{Thresholds: Thresholds{MaxMAPE: 0.5, MinR2: 0.2}}
	r := Report{Date: day}
	r.Demand.Accuracy = &stats.Accuracy{MAPE: 0.9, R2: 0.1}
	got := m.Evaluate(r)
	if len(got) != 2 || got[0].Event != "demand_mape_high" || got[1].Event != "demand_r2_low" {
		t.Fatalf("alerts=%+v", got)
	}
}
