package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pricing/internal/cache"
	"pricing/internal/demand"
	"pricing/internal/elasticity"
	"pricing/internal/models"
	"pricing/internal/repository"
)

// ErrKeyBusy means another worker held the key's lock for the whole wait budget.
var ErrKeyBusy = errors.New("optimizer: key busy")

const ModelTypeOptimizer = "optimizer"

var tracer = otel.Tracer("pricing/internal/optimizer")

type Store interface {
	repository.FeatureRepository
	repository.VendorRuleRepository
	repository.SuggestionRepository
	repository.PredictionLogRepository
}

// ElasticitySource resolves a coefficient, substituting the default when none is stored.
type ElasticitySource interface {
	Get(ctx context.Context, sku, vendorID string) (elasticity.Coefficient, error)
}

type Service struct {
	Repo        Store
	Elasticity  ElasticitySource
	Predictor   demand.Predictor
	Locker      *cache.Locker
	Config      Config
	Concurrency int
	Logger      *zap.Logger
	Now         func() time.Time
}

// Suggestion is a persisted Result.
type Suggestion struct {
	Result
	ID             uint64    `json:"id"`
	PublicID       string    `json:"suggestion_id"`
	SuggestionDate time.Time `json:"suggestion_date"`
	Status         string    `json:"status"`
}

// Optimize loads the key's inputs and runs Decide. It persists nothing.
func (s *Service) Optimize(ctx context.Context, sku, vendorID string) (*Result, SkipReason, error) {
	ctx, span := tracer.Start(ctx, "optimizer.Optimize")
	defer span.End()
	span.SetAttributes(attribute.String("sku", sku), attribute.String("vendor_id", vendorID))

	if s == nil || s.Repo == nil {
		return nil, SkipNone, errors.New("optimizer: repository not configured")
	}

	feat, err := s.Repo.LatestFeatures(ctx, sku, vendorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load features")
		return nil, SkipNone, fmt.Errorf("load features: %w", err)
	}
	if feat == nil {
		s.warn("no features for key", sku, vendorID)
		span.SetAttributes(attribute.String("skip", string(SkipNoFeatures)))
		return nil, SkipNoFeatures, nil
	}
	if feat.Inventory <= 0 {
		if s.Logger != nil {
			s.Logger.Info("zero stock, skipping", zap.String("sku", sku), zap.String("vendor_id", vendorID))
		}
		span.SetAttributes(attribute.String("skip", string(SkipOutOfStock)))
		return nil, SkipOutOfStock, nil
	}

	rules, err := s.rules(ctx, sku, vendorID)
	if err != nil {
		span.RecordError(err)
		return nil, SkipNone, err
	}

	coef := elasticity.Coefficient{Elasticity: -1.5, Metrics: elasticity.Metrics{PValuePrice: 1}, Fallback: true}
	if s.Elasticity != nil {
		coef, err = s.Elasticity.Get(ctx, sku, vendorID)
		if err != nil {
			span.RecordError(err)
			return nil, SkipNone, err
		}
	}

	current := feat.CurrentPrice.InexactFloat64()
	base := feat.BasePrice.InexactFloat64()
	if base == 0 {
		base = current
	}
	in := Input{
		SKU:          sku,
		VendorID:     vendorID,
		Features:     demand.FromSnapshot(feat),
		Inventory:    feat.Inventory,
		CurrentPrice: current,
		CostPrice:    feat.CostPrice.InexactFloat64(),
		BasePrice:    base,
		Rules:        rules,
		Elasticity:   coef,
	}
	res, skip, err := Decide(ctx, in, s.Config, s.Predictor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decide")
		return nil, SkipNone, err
	}
	if res == nil {
		s.warn("no valid candidates", sku, vendorID)
		span.SetAttributes(attribute.String("skip", string(skip)))
		return nil, skip, nil
	}
	span.SetAttributes(
		attribute.Float64("optimal_price", res.OptimalPrice),
		attribute.Float64("confidence", res.Confidence),
	)
	return res, SkipNone, nil
}

// Suggest serializes on the key, optimizes, then persists the suggestion and a
// prediction log row.
func (s *Service) Suggest(ctx context.Context, sku, vendorID string) (*Suggestion, SkipReason, error) {
	ctx, span := tracer.Start(ctx, "optimizer.Suggest")
	defer span.End()

	release, err := s.lock(ctx, sku, vendorID)
	if err != nil {
		span.RecordError(err)
		return nil, SkipNone, err
	}
	defer release()

	res, skip, err := s.Optimize(ctx, sku, vendorID)
	if err != nil || res == nil {
		return nil, skip, err
	}

	now := s.now()
	item := &models.PriceSuggestion{
		PublicID:        uuid.NewString(),
		SKU:             sku,
		VendorID:        vendorID,
		SuggestionDate:  models.Day(now),
		CurrentPrice:    decimal.NewFromFloat(res.CurrentPrice).Round(4),
		SuggestedPrice:  decimal.NewFromFloat(res.OptimalPrice).Round(2),
		ExpectedRevenue: decimal.NewFromFloat(res.ExpectedRevenue).Round(4),
		ExpectedProfit:  decimal.NewFromFloat(res.ExpectedProfit).Round(4),
		Elasticity:      res.Elasticity,
		Confidence:      res.Confidence,
		Reason:          res.Reason,
		Status:          models.SuggestionPending,
		CreatedAt:       now,
	}
	if err := s.Repo.InsertSuggestion(ctx, item); err != nil {
		span.RecordError(err)
		return nil, SkipNone, fmt.Errorf("persist suggestion: %w", err)
	}
	s.logPrediction(ctx, item, res)

	return &Suggestion{
		Result:         *res,
		ID:             item.ID,
		PublicID:       item.PublicID,
		SuggestionDate: item.SuggestionDate,
		Status:         item.Status,
	}, SkipNone, nil
}

func (s *Service) logPrediction(ctx context.Context, item *models.PriceSuggestion, res *Result) {
	input, _ := json.Marshal(map[string]any{
		"sku":           res.SKU,
		"vendor_id":     res.VendorID,
		"current_price": res.CurrentPrice,
	})
	output, _ := json.Marshal(map[string]any{
		"optimal_price":    res.OptimalPrice,
		"expected_revenue": res.ExpectedRevenue,
		"expected_profit":  res.ExpectedProfit,
	})
	err := s.Repo.InsertPredictionLog(ctx, &models.PredictionLog{
		SKU:               res.SKU,
		VendorID:          res.VendorID,
		SuggestionID:      item.ID,
		ModelType:         ModelTypeOptimizer,
		InputFeaturesJSON: datatypes.JSON(input),
		OutputJSON:        datatypes.JSON(output),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("prediction log insert failed", zap.String("sku", res.SKU), zap.String("vendor_id", res.VendorID), zap.Error(err))
	}
}

func (s *Service) rules(ctx context.Context, sku, vendorID string) (Rules, error) {
	defaults := s.Config.normalized().Defaults
	item, err := s.Repo.GetVendorRule(ctx, sku, vendorID)
	if err != nil {
		return Rules{}, fmt.Errorf("load vendor rules: %w", err)
	}
	if item == nil {
		s.warn("no vendor rules, using defaults", sku, vendorID)
		return defaults, nil
	}
	return Rules{
		MinMarginPct:    item.MinMarginPct,
		MaxDiscountPct:  item.MaxDiscountPct,
		MaxDailyMovePct: item.MaxDailyPriceMovePct,
	}, nil
}

func (s *Service) lock(ctx context.Context, sku, vendorID string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	release, err := s.Locker.Acquire(ctx, repository.Key{SKU: sku, VendorID: vendorID}.LockName())
	if errors.Is(err, cache.ErrLockTimeout) {
		return nil, ErrKeyBusy
	}
	if err != nil {
		return nil, fmt.Errorf("acquire key lock: %w", err)
	}
	return release, nil
}

func (s *Service) warn(msg, sku, vendorID string) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.String("sku", sku), zap.String("vendor_id", vendorID))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
