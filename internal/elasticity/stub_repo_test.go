package elasticity

import (
	"context"
	"sync"
	"time"

	"pricing/internal/models"
	"pricing/internal/repository"
)

// stubRepo is a test-only in-memory Store.
type stubRepo struct {
	mu        sync.Mutex
	points    map[repository.Key][]repository.PricePoint
	coeffs    map[repository.Key]models.ElasticityCoeff
	getCalls  int
	failFetch map[repository.Key]error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		points:    map[repository.Key][]repository.PricePoint{},
		coeffs:    map[repository.Key]models.ElasticityCoeff{},
		failFetch: map[repository.Key]error{},
	}
}

func (s *stubRepo) InsertOrders(ctx context.Context, items []models.Order) error { return nil }

func (s *stubRepo) ListPricePoints(ctx context.Context, sku, vendorID string, since *time.Time) ([]repository.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repository.Key{SKU: sku, VendorID: vendorID}
	if err := s.failFetch[key]; err != nil {
		return nil, err
	}
	return s.points[key], nil
}

func (s *stubRepo) ListOrderKeys(ctx context.Context) ([]repository.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]repository.Key, 0, len(s.points)+len(s.failFetch))
	for k := range s.points {
		keys = append(keys, k)
	}
	for k := range s.failFetch {
		if _, ok := s.points[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *stubRepo) ListDailySales(ctx context.Context, from, to time.Time) ([]repository.DailySales, error) {
	return nil, nil
}

func (s *stubRepo) SumUnitsByKey(ctx context.Context, from, to time.Time) (map[repository.Key]float64, error) {
	return nil, nil
}

func (s *stubRepo) GetElasticity(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	item, ok := s.coeffs[repository.Key{SKU: sku, VendorID: vendorID}]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubRepo) UpsertElasticity(ctx context.Context, item *models.ElasticityCoeff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coeffs[repository.Key{SKU: item.SKU, VendorID: item.VendorID}] = *item
	return nil
}

func (s *stubRepo) CountElasticity(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.coeffs)), nil
}

func (s *stubRepo) CountDistinctElasticitySKUs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skus := map[string]struct{}{}
	for k := range s.coeffs {
		skus[k.SKU] = struct{}{}
	}
	return int64(len(skus)), nil
}
