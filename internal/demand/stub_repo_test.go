package demand

import (
	"context"
	"time"

	"pricing/internal/models"
	"pricing/internal/repository"
)

// stubRepo is a test-only in-memory TrainerStore.
type stubRepo struct {
	features  []models.FeatureSnapshot
	metrics   []models.MonitoringMetric
	artifacts []models.ModelArtifact
}

func (s *stubRepo) LatestFeatures(ctx context.Context, sku, vendorID string) (*models.FeatureSnapshot, error) {
	return nil, nil
}
func (s *stubRepo) LatestFeatureDate(ctx context.Context) (*time.Time, error) { return nil, nil }
func (s *stubRepo) ListFeatureKeys(ctx context.Context, date time.Time) ([]repository.Key, error) {
	return nil, nil
}
func (s *stubRepo) ListAllFeatures(ctx context.Context) ([]models.FeatureSnapshot, error) {
	return s.features, nil
}
func (s *stubRepo) CountDistinctFeatureSKUs(ctx context.Context, date time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) UpsertFeatures(ctx context.Context, items []models.FeatureSnapshot) error {
	return nil
}
func (s *stubRepo) InsertMetrics(ctx context.Context, items []models.MonitoringMetric) error {
	s.metrics = append(s.metrics, items...)
	return nil
}
func (s *stubRepo) ListMetrics(ctx context.Context, params repository.ListMetricsParams) ([]models.MonitoringMetric, error) {
	return s.metrics, nil
}
func (s *stubRepo) CountMetrics(ctx context.Context, params repository.ListMetricsParams) (int64, error) {
	return int64(len(s.metrics)), nil
}
func (s *stubRepo) InsertModelArtifact(ctx context.Context, item *models.ModelArtifact) error {
	s.artifacts = append(s.artifacts, *item)
	return nil
}
func (s *stubRepo) LatestModelArtifact(ctx context.Context, name string) (*models.ModelArtifact, error) {
	if len(s.artifacts) == 0 {
		return nil, nil
	}
	a := s.artifacts[len(s.artifacts)-1]
	return &a, nil
}
