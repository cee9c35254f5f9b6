package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pricing/internal/models"
	"pricing/internal/repository"
)

// stubRepo is a test-only in-memory Store. InTx restores the prior state when
// fn fails.
type stubRepo struct {
	mu          sync.Mutex
	suggestions []models.PriceSuggestion
	feedback    []models.PriceFeedback
	updateErr   error
	nextID      uint64
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	suggestions := append([]models.PriceSuggestion(nil), s.suggestions...)
	feedback := append([]models.PriceFeedback(nil), s.feedback...)
	s.mu.Unlock()
	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.suggestions = suggestions
		s.feedback = feedback
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *stubRepo) addSuggestion(sku, vendorID string, price float64, createdAt time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.suggestions = append(s.suggestions, models.PriceSuggestion{
		ID:             s.nextID,
		SKU:            sku,
		VendorID:       vendorID,
		SuggestedPrice: decimal.NewFromFloat(price),
		Status:         models.SuggestionPending,
		CreatedAt:      createdAt,
	})
	return s.nextID
}

func (s *stubRepo) suggestion(id uint64) models.PriceSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.suggestions {
		if item.ID == id {
			return item
		}
	}
	return models.PriceSuggestion{}
}

func (s *stubRepo) InsertSuggestion(ctx context.Context, item *models.PriceSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.suggestions = append(s.suggestions, *item)
	return nil
}

func (s *stubRepo) latest(sku, vendorID string, match func(models.PriceSuggestion) bool) *models.PriceSuggestion {
	var out *models.PriceSuggestion
	for i := range s.suggestions {
		item := s.suggestions[i]
		if item.SKU != sku || item.VendorID != vendorID || !match(item) {
			continue
		}
		if out == nil || item.CreatedAt.After(out.CreatedAt) || (item.CreatedAt.Equal(out.CreatedAt) && item.ID > out.ID) {
			v := item
			out = &v
		}
	}
	return out
}

func (s *stubRepo) LatestSuggestion(ctx context.Context, sku, vendorID string) (*models.PriceSuggestion, error) {
	return s.LatestSuggestionTx(ctx, nil, sku, vendorID)
}

func (s *stubRepo) LatestSuggestionTx(ctx context.Context, tx *gorm.DB, sku, vendorID string) (*models.PriceSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest(sku, vendorID, func(models.PriceSuggestion) bool { return true }), nil
}

func (s *stubRepo) LatestSuggestionAtPriceTx(ctx context.Context, tx *gorm.DB, sku, vendorID string, price decimal.Decimal) (*models.PriceSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest(sku, vendorID, func(item models.PriceSuggestion) bool { return item.SuggestedPrice.Equal(price) }), nil
}

func (s *stubRepo) UpdateSuggestionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.suggestions {
		if s.suggestions[i].ID == id {
			s.suggestions[i].Status = status
		}
	}
	return nil
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

func (s *stubRepo) InsertFeedbackTx(ctx context.Context, tx *gorm.DB, item *models.PriceFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.feedback = append(s.feedback, *item)
	return nil
}

func (s *stubRepo) CountFeedbackByAction(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int64{}
	for _, item := range s.feedback {
		out[item.Action]++
	}
	return out, nil
}
