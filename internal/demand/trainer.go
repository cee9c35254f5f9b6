package demand

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pricing/internal/models"
	"pricing/internal/repository"
	"pricing/internal/stats"
)

// ArtifactName is the model_artifacts registry name of the demand model.
const ArtifactName = "demand"

type TrainerStore interface {
	repository.FeatureRepository
	repository.MetricRepository
	repository.ModelArtifactRepository
}

type Trainer struct {
	Repo   TrainerStore
	Files  *FileStore
	Params TrainParams
	Logger *zap.Logger
	Now    func() time.Time
}

type TrainReport struct {
	Version   string         `json:"version"`
	Path      string         `json:"path"`
	Rows      int            `json:"rows"`
	Trees     int            `json:"trees"`
	Metrics   stats.Accuracy `json:"metrics"`
	TrainedAt time.Time      `json:"trained_at"`
}

// Train fits a new model on the whole feature table and persists it. The
// returned model is not installed into any serving handle.
func (t *Trainer) Train(ctx context.Context) (*Model, TrainReport, error) {
	var report TrainReport
	if t == nil || t.Repo == nil {
		return nil, report, ErrEmptyTrainingSet
	}
	rows, err := t.Repo.ListAllFeatures(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("load features: %w", err)
	}
	if len(rows) == 0 {
		return nil, report, ErrEmptyTrainingSet
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i := range rows {
		x[i] = FromSnapshot(&rows[i]).Values()
		y[i] = rows[i].AvgDailySales7d
	}

	model, err := Train(x, y, t.Params)
	if err != nil {
		return nil, report, err
	}
	pred := make([]float64, len(x))
	for i, row := range x {
		pred[i] = model.Predict(row)
	}
	acc := stats.Evaluate(y, pred)

	now := t.now()
	report = TrainReport{
		Version:   uuid.NewString(),
		Rows:      len(rows),
		Trees:     len(model.Trees),
		Metrics:   acc,
		TrainedAt: now,
	}
	if t.Files != nil {
		report.Path = t.Files.Path
		if err := t.Files.Save(model, report.Version, now); err != nil {
			return nil, report, fmt.Errorf("save demand artifact: %w", err)
		}
	}

	rawMetrics, _ := json.Marshal(acc)
	if err := t.Repo.InsertModelArtifact(ctx, &models.ModelArtifact{
		Name:      ArtifactName,
		Version:   report.Version,
		Path:      report.Path,
		Rows:      report.Rows,
		Metrics:   datatypes.JSON(rawMetrics),
		TrainedAt: now,
	}); err != nil {
		return nil, report, fmt.Errorf("register demand artifact: %w", err)
	}

	metricRows := make([]models.MonitoringMetric, 0, 3)
	for _, name := range []string{"MAPE", "RMSE", "R2"} {
		metricRows = append(metricRows, models.MonitoringMetric{
			Date:        models.Day(now),
			SKU:         models.GlobalKey,
			VendorID:    models.GlobalKey,
			ModelType:   models.ModelTypeDemand,
			MetricName:  name,
			MetricValue: acc.Map()[name],
		})
	}
	if err := t.Repo.InsertMetrics(ctx, metricRows); err != nil {
		return nil, report, fmt.Errorf("log demand metrics: %w", err)
	}

	if t.Logger != nil {
		t.Logger.Info("demand model trained",
			zap.String("version", report.Version),
			zap.Int("rows", report.Rows),
			zap.Float64("mape", acc.MAPE),
			zap.Float64("rmse", acc.RMSE),
			zap.Float64("r2", acc.R2),
		)
	}
	return model, report, nil
}

func (t *Trainer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
