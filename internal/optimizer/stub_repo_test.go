package optimizer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pricing/internal/models"
	"pricing/internal/repository"
)

// stubRepo is a test-only in-memory Store.
type stubRepo struct {
	mu          sync.Mutex
	features    map[repository.Key]models.FeatureSnapshot
	rules       map[repository.Key]models.VendorRule
	suggestions []models.PriceSuggestion
	logs        []models.PredictionLog
	featureErr  map[repository.Key]error
	nextID      uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		features:   map[repository.Key]models.FeatureSnapshot{},
		rules:      map[repository.Key]models.VendorRule{},
		featureErr: map[repository.Key]error{},
	}
}

func (s *stubRepo) addFeatures(f models.FeatureSnapshot) {
	s.features[repository.Key{SKU: f.SKU, VendorID: f.VendorID}] = f
}

func (s *stubRepo) LatestFeatures(ctx context.Context, sku, vendorID string) (*models.FeatureSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repository.Key{SKU: sku, VendorID: vendorID}
	if err := s.featureErr[key]; err != nil {
		return nil, err
	}
	f, ok := s.features[key]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *stubRepo) LatestFeatureDate(ctx context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, f := range s.features {
		d := f.Date
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest, nil
}

func (s *stubRepo) ListFeatureKeys(ctx context.Context, date time.Time) ([]repository.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []repository.Key
	for k, f := range s.features {
		if f.Date.Equal(date) {
			keys = append(keys, k)
		}
	}
	for k := range s.featureErr {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SKU < keys[j].SKU })
	return keys, nil
}

func (s *stubRepo) ListAllFeatures(ctx context.Context) ([]models.FeatureSnapshot, error) {
	return nil, nil
}
func (s *stubRepo) CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) UpsertFeatures(ctx context.Context, items []models.FeatureSnapshot) error {
	return nil
}

func (s *stubRepo) GetVendorRule(ctx context.Context, sku, vendorID string) (*models.VendorRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[repository.Key{SKU: sku, VendorID: vendorID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *stubRepo) UpsertVendorRule(ctx context.Context, item *models.VendorRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[repository.Key{SKU: item.SKU, VendorID: item.VendorID}] = *item
	return nil
}

func (s *stubRepo) InsertSuggestion(ctx context.Context, item *models.PriceSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.suggestions = append(s.suggestions, *item)
	return nil
}

func (s *stubRepo) LatestSuggestion(ctx context.Context, sku, vendorID string) (*models.PriceSuggestion, error) {
	return s.LatestSuggestionTx(ctx, nil, sku, vendorID)
}

func (s *stubRepo) LatestSuggestionTx(ctx context.Context, tx *gorm.DB, sku, vendorID string) (*models.PriceSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.suggestions) - 1; i >= 0; i-- {
		if s.suggestions[i].SKU == sku && s.suggestions[i].VendorID == vendorID {
			item := s.suggestions[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) LatestSuggestionAtPriceTx(ctx context.Context, tx *gorm.DB, sku, vendorID string, price decimal.Decimal) (*models.PriceSuggestion, error) {
	return nil, errors.New("not used")
}

func (s *stubRepo) UpdateSuggestionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	return errors.New("not used")
}

func (s *stubRepo) ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error) {
	return nil, nil
}

func (s *stubRepo) ListSuggestionKeys(ctx context.Context, from, to time.Time) ([]repository.Key, error) {
	return nil, nil
}

func (s *stubRepo) CountDistinctSuggestionSKUs(ctx context.Context, date time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) InsertPredictionLog(ctx context.Context, item *models.PredictionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *item)
	return nil
}
