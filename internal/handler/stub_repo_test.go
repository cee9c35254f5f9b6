package handler

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pricing/internal/feedback"
	"pricing/internal/models"
	"pricing/internal/optimizer"
	"pricing/internal/repository"
)

type stubSuggester struct {
	item  *optimizer.Suggestion
	skip  optimizer.SkipReason
	err   error
	calls []repository.Key
}

func (s *stubSuggester) Suggest(ctx context.Context, sku, vendorID string) (*optimizer.Suggestion, optimizer.SkipReason, error) {
	s.calls = append(s.calls, repository.Key{SKU: sku, VendorID: vendorID})
	return s.item, s.skip, s.err
}

type stubFeedback struct {
	recorded []feedback.Feedback
	err      error
	counts   map[string]int64
}

func (s *stubFeedback) Record(ctx context.Context, fb feedback.Feedback) (*feedback.Outcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.recorded = append(s.recorded, fb)
	return &feedback.Outcome{FeedbackID: uint64(len(s.recorded)), Status: feedback.StatusForAction(fb.Action)}, nil
}

func (s *stubFeedback) Summary(ctx context.Context) (map[string]int64, error) {
	if s.counts == nil {
		return map[string]int64{}, nil
	}
	return s.counts, nil
}

type stubMetrics struct {
	items      []models.MonitoringMetric
	lastParams repository.ListMetricsParams
}

func (s *stubMetrics) filter(params repository.ListMetricsParams) []models.MonitoringMetric {
	var out []models.MonitoringMetric
	for _, it := range s.items {
		if params.ModelType != nil && it.ModelType != *params.ModelType {
			continue
		}
		if params.MetricName != nil && it.MetricName != *params.MetricName {
			continue
		}
		if params.Date != nil && !it.Date.Equal(*params.Date) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (s *stubMetrics) ListMetrics(ctx context.Context, params repository.ListMetricsParams) ([]models.MonitoringMetric, error) {
	s.lastParams = params
	return s.filter(params), nil
}

func (s *stubMetrics) CountMetrics(ctx context.Context, params repository.ListMetricsParams) (int64, error) {
	return int64(len(s.filter(params))), nil
}

type stubRegistry struct {
	latest *models.ModelArtifact
	coeffs int64
}

func (s *stubRegistry) LatestModelArtifact(ctx context.Context, name string) (*models.ModelArtifact, error) {
	return s.latest, nil
}

func (s *stubRegistry) CountElasticity(ctx context.Context) (int64, error) {
	return s.coeffs, nil
}

type stubSettings struct {
	mu    sync.Mutex
	items map[string]models.SystemSetting
}

func newStubSettings() *stubSettings {
	return &stubSettings{items: map[string]models.SystemSetting{}}
}

func (s *stubSettings) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.Key] = *item
	return nil
}

func (s *stubSettings) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubSettings) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SystemSetting
	for k, v := range s.items {
		if params.Prefix == nil || strings.HasPrefix(k, *params.Prefix) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *stubSettings) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	items, _ := s.ListSystemSettings(ctx, params)
	return int64(len(items)), nil
}
