package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	cronrunner "pricing/internal/cron"
	"pricing/internal/settings"
)

// Jobs lists the scheduled jobs with their switches. A blank spec in config
// leaves that job unscheduled.
func (a *App) Jobs() []cronrunner.Job {
	cfg := a.Config.Cron
	return []cronrunner.Job{
		{
			Name:    "feature_etl",
			Spec:    cfg.FeatureETL,
			Switch:  settings.FeatureFeatureETL,
			Timeout: 30 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := a.ETL.Run(ctx, time.Time{})
				return err
			},
		},
		{
			Name:    "elasticity_training",
			Spec:    cfg.ElasticityTraining,
			Switch:  settings.FeatureElasticityTraining,
			Timeout: 2 * time.Hour,
			Run: func(ctx context.Context) error {
				_, err := a.Elasticity.TrainAll(ctx)
				return err
			},
		},
		{
			Name:    "price_batch",
			Spec:    cfg.PriceBatch,
			Switch:  settings.FeaturePriceBatch,
			Timeout: 2 * time.Hour,
			Run: func(ctx context.Context) error {
				_, err := a.Optimizer.RunBatch(ctx)
				return err
			},
		},
		{
			Name:    "demand_training",
			Spec:    cfg.DemandTraining,
			Switch:  settings.FeatureDemandTraining,
			Timeout: 2 * time.Hour,
			Run: func(ctx context.Context) error {
				_, err := a.TrainDemand(ctx)
				return err
			},
		},
		{
			Name:    "monitoring",
			Spec:    cfg.Monitoring,
			Switch:  settings.FeatureMonitoring,
			Timeout: time.Hour,
			Run: func(ctx context.Context) error {
				_, err := a.Monitor.RunDaily(ctx, time.Time{})
				return err
			},
		},
	}
}

// Scheduler registers every job on a runner gated by the job switches. The
// caller starts and stops it.
func (a *App) Scheduler(ctx context.Context) *cronrunner.Runner {
	runner := cronrunner.New(a.Logger.Named("cron"), ctx, a.Switches)
	if !a.Config.Cron.Enabled {
		a.Logger.Info("cron disabled by config")
		return runner
	}
	for _, job := range a.Jobs() {
		if _, err := runner.Add(job); err != nil {
			a.Logger.Warn("cron register failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
	return runner
}
