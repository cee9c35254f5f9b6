package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BatchSummary struct {
	RunID       string             `json:"run_id"`
	FeatureDate *time.Time         `json:"feature_date,omitempty"`
	Total       int                `json:"total"`
	Processed   int                `json:"processed"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
	SkipReasons map[SkipReason]int `json:"skip_reasons,omitempty"`
	Failures    map[string]string  `json:"failures,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

// RunBatch suggests a price for every key on the latest feature date. A key's
// failure is counted and logged; it never cancels the other keys.
func (s *Service) RunBatch(ctx context.Context) (BatchSummary, error) {
	started := time.Now()
	summary := BatchSummary{
		RunID:       uuid.NewString(),
		SkipReasons: map[SkipReason]int{},
		Failures:    map[string]string{},
	}
	if s == nil || s.Repo == nil {
		return summary, nil
	}

	date, err := s.Repo.LatestFeatureDate(ctx)
	if err != nil {
		return summary, fmt.Errorf("latest feature date: %w", err)
	}
	if date == nil {
		if s.Logger != nil {
			s.Logger.Warn("price batch found no feature rows", zap.String("run_id", summary.RunID))
		}
		return summary, nil
	}
	summary.FeatureDate = date

	keys, err := s.Repo.ListFeatureKeys(ctx, *date)
	if err != nil {
		return summary, fmt.Errorf("list feature keys: %w", err)
	}
	summary.Total = len(keys)
	if s.Logger != nil {
		s.Logger.Info("price batch started",
			zap.String("run_id", summary.RunID),
			zap.Time("feature_date", *date),
			zap.Int("keys", len(keys)),
		)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for _, key := range keys {
		key := key
		g.Go(func() error {
			_, skip, err := s.Suggest(gctx, key.SKU, key.VendorID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Failures[key.String()] = err.Error()
				if s.Logger != nil {
					s.Logger.Warn("price batch key failed",
						zap.String("run_id", summary.RunID),
						zap.String("sku", key.SKU),
						zap.String("vendor_id", key.VendorID),
						zap.Error(err),
					)
				}
			case skip != SkipNone:
				summary.Skipped++
				summary.SkipReasons[skip]++
			default:
				summary.Processed++
			}
			return nil
		})
	}
	_ = g.Wait()
	summary.Duration = time.Since(started)

	if s.Logger != nil {
		s.Logger.Info("price batch finished",
			zap.String("run_id", summary.RunID),
			zap.Int("total", summary.Total),
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Duration("duration", summary.Duration),
		)
	}
	return summary, ctx.Err()
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return 8
	}
	return s.Concurrency
}
