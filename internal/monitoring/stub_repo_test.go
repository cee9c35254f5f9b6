package monitoring

import (
	"context"
	"sync"
	"time"

	"pricing/internal/elasticity"
	"pricing/internal/models"
	"pricing/internal/repository"
)

// stubRepo is a test-only in-memory Store.
type stubRepo struct {
	mu              sync.Mutex
	suggestions     []models.PriceSuggestion
	suggestionKeys  []repository.Key
	units           map[repository.Key]float64
	featureSKUs     int64
	elasticitySKUs  int64
	suggestionSKUs  int64
	metrics         []models.MonitoringMetric
	suggestionsErr  error
	lastKeysFrom    time.Time
	lastUnitsWindow [2]time.Time
}

func (s *stubRepo) ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error) {
	if s.suggestionsErr != nil {
		return nil, s.suggestionsErr
	}
	var out []models.PriceSuggestion
	for _, item := range s.suggestions {
		if item.SuggestionDate.Equal(date) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) ListSuggestionKeys(ctx context.Context, from, to time.Time) ([]repository.Key, error) {
	s.lastKeysFrom = from
	return s.suggestionKeys, nil
}

func (s *stubRepo) CountDistinctSuggestionSKUs(ctx context.Context, date time.Time) (int64, error) {
	return s.suggestionSKUs, nil
}

func (s *stubRepo) SumUnitsByKey(ctx context.Context, from, to time.Time) (map[repository.Key]float64, error) {
	s.lastUnitsWindow = [2]time.Time{from, to}
	return s.units, nil
}

func (s *stubRepo) CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error) {
	return s.featureSKUs, nil
}

func (s *stubRepo) CountDistinctElasticitySKUs(ctx context.Context) (int64, error) {
	return s.elasticitySKUs, nil
}

func (s *stubRepo) InsertMetrics(ctx context.Context, items []models.MonitoringMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, items...)
	return nil
}

func (s *stubRepo) metricsOf(modelType string) []models.MonitoringMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MonitoringMetric
	for _, m := range s.metrics {
		if m.ModelType == modelType {
			out = append(out, m)
		}
	}
	return out
}

// stubRefitter returns canned fits and records saves.
type stubRefitter struct {
	mu     sync.Mutex
	fits   map[repository.Key]elasticity.Result
	errs   map[repository.Key]error
	stored map[repository.Key]float64
	saved  map[repository.Key]float64
	since  []*time.Time
}

func newStubRefitter() *stubRefitter {
	return &stubRefitter{
		fits:   map[repository.Key]elasticity.Result{},
		errs:   map[repository.Key]error{},
		stored: map[repository.Key]float64{},
		saved:  map[repository.Key]float64{},
	}
}

func (r *stubRefitter) FitKey(ctx context.Context, sku, vendorID string, since *time.Time) (elasticity.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = append(r.since, since)
	key := repository.Key{SKU: sku, VendorID: vendorID}
	if err := r.errs[key]; err != nil {
		return elasticity.Result{}, err
	}
	res, ok := r.fits[key]
	if !ok {
		return elasticity.Result{}, elasticity.ErrNoData
	}
	return res, nil
}

func (r *stubRefitter) Stored(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.stored[repository.Key{SKU: sku, VendorID: vendorID}]
	if !ok {
		return nil, nil
	}
	return &models.ElasticityCoeff{SKU: sku, VendorID: vendorID, Elasticity: v}, nil
}

func (r *stubRefitter) Save(ctx context.Context, sku, vendorID string, res elasticity.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repository.Key{SKU: sku, VendorID: vendorID}
	r.saved[key] = res.Elasticity
	r.stored[key] = res.Elasticity
	return nil
}
