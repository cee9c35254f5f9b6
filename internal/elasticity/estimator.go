package elasticity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pricing/internal/cache"
	"pricing/internal/models"
	"pricing/internal/repository"
)

type Store interface {
	repository.OrderRepository
	repository.ElasticityRepository
}

// Coefficient is what the optimizer consumes. Fallback marks the configured
// default being substituted for a missing stored fit.
type Coefficient struct {
	Elasticity float64 `json:"elasticity"`
	Metrics    Metrics `json:"metrics"`
	Fallback   bool    `json:"fallback"`
}

type Estimator struct {
	Repo     Store
	Cache    cache.Store
	CacheTTL time.Duration
	// Default is substituted when no coefficient is stored for a key.
	Default     float64
	Options     FitOptions
	Concurrency int
	Logger      *zap.Logger
}

// FitKey loads the key's price points and fits them. since == nil uses the full
// order history.
func (e *Estimator) FitKey(ctx context.Context, sku, vendorID string, since *time.Time) (Result, error) {
	if e == nil || e.Repo == nil {
		return Result{}, ErrNoData
	}
	points, err := e.Repo.ListPricePoints(ctx, sku, vendorID, since)
	if err != nil {
		return Result{}, fmt.Errorf("load price points: %w", err)
	}
	return Fit(points, e.Options)
}

// Save upserts res for the key and drops any cached read.
func (e *Estimator) Save(ctx context.Context, sku, vendorID string, res Result) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	item := &models.ElasticityCoeff{
		SKU:           sku,
		VendorID:      vendorID,
		Elasticity:    res.Elasticity,
		R2:            res.Metrics.R2,
		PValuePrice:   res.Metrics.PValuePrice,
		NObs:          res.Metrics.NObs,
		LastTrainedAt: time.Now().UTC(),
	}
	if err := e.Repo.UpsertElasticity(ctx, item); err != nil {
		return fmt.Errorf("upsert elasticity: %w", err)
	}
	if e.Cache != nil {
		if err := e.Cache.Delete(ctx, cacheKey(sku, vendorID)); err != nil && e.Logger != nil {
			e.Logger.Warn("elasticity cache invalidate failed", zap.String("sku", sku), zap.String("vendor_id", vendorID), zap.Error(err))
		}
	}
	return nil
}

// Stored returns the persisted coefficient without cache or fallback.
func (e *Estimator) Stored(ctx context.Context, sku, vendorID string) (*models.ElasticityCoeff, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	return e.Repo.GetElasticity(ctx, sku, vendorID)
}

// Get returns the stored coefficient or the default with zero-confidence
// metrics. Only store failures are errors.
func (e *Estimator) Get(ctx context.Context, sku, vendorID string) (Coefficient, error) {
	fallback := Coefficient{
		Elasticity: e.defaultValue(),
		Metrics:    Metrics{R2: 0, PValuePrice: 1, NObs: 0},
		Fallback:   true,
	}
	if e == nil || e.Repo == nil {
		return fallback, nil
	}

	key := cacheKey(sku, vendorID)
	if e.Cache != nil {
		raw, found, err := e.Cache.Get(ctx, key)
		if err != nil && e.Logger != nil {
			e.Logger.Warn("elasticity cache read failed", zap.String("sku", sku), zap.Error(err))
		}
		if err == nil && found {
			var coef Coefficient
			if err := json.Unmarshal(raw, &coef); err == nil {
				return coef, nil
			}
		}
	}

	item, err := e.Repo.GetElasticity(ctx, sku, vendorID)
	if err != nil {
		return Coefficient{}, fmt.Errorf("get elasticity: %w", err)
	}
	if item == nil {
		if e.Logger != nil {
			e.Logger.Warn("no elasticity found, using default",
				zap.String("sku", sku),
				zap.String("vendor_id", vendorID),
				zap.Float64("default", fallback.Elasticity),
			)
		}
		return fallback, nil
	}

	coef := Coefficient{
		Elasticity: item.Elasticity,
		Metrics: Metrics{
			R2:          item.R2,
			PValuePrice: item.PValuePrice,
			NObs:        item.NObs,
		},
	}
	if e.Cache != nil {
		if raw, err := json.Marshal(coef); err == nil {
			_ = e.Cache.Set(ctx, key, raw, e.CacheTTL)
		}
	}
	return coef, nil
}

type TrainSummary struct {
	Total   int            `json:"total"`
	Trained int            `json:"trained"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Reasons map[string]int `json:"skip_reasons,omitempty"`
}

// TrainAll fits every key that has orders and upserts the successful fits.
// Insufficient data skips a key; store errors count as failures. Neither
// stops the run.
func (e *Estimator) TrainAll(ctx context.Context) (TrainSummary, error) {
	summary := TrainSummary{Reasons: map[string]int{}}
	if e == nil || e.Repo == nil {
		return summary, nil
	}
	keys, err := e.Repo.ListOrderKeys(ctx)
	if err != nil {
		return summary, fmt.Errorf("list order keys: %w", err)
	}
	summary.Total = len(keys)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, key := range keys {
		key := key
		g.Go(func() error {
			res, err := e.FitKey(gctx, key.SKU, key.VendorID, nil)
			if err == nil {
				err = e.Save(gctx, key.SKU, key.VendorID, res)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Trained++
			case errors.Is(err, ErrNoData), errors.Is(err, ErrInsufficientVariation):
				summary.Skipped++
				summary.Reasons[err.Error()]++
			default:
				summary.Failed++
				if e.Logger != nil {
					e.Logger.Warn("elasticity fit failed", zap.String("sku", key.SKU), zap.String("vendor_id", key.VendorID), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if e.Logger != nil {
		e.Logger.Info("elasticity training finished",
			zap.Int("total", summary.Total),
			zap.Int("trained", summary.Trained),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)
	}
	return summary, ctx.Err()
}

func (e *Estimator) defaultValue() float64 {
	if e == nil || e.Default == 0 {
		return -1.5
	}
	return e.Default
}

func (e *Estimator) concurrency() int {
	if e == nil || e.Concurrency <= 0 {
		return 4
	}
	return e.Concurrency
}

func cacheKey(sku, vendorID string) string {
	return "elasticity:" + sku + "|" + vendorID
}
