// Package app wires the pricing services from configuration. Both binaries
// build one App and use the parts they need.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pricing/internal/alert"
	"pricing/internal/cache"
	"pricing/internal/config"
	"pricing/internal/db"
	"pricing/internal/demand"
	"pricing/internal/elasticity"
	"pricing/internal/features"
	"pricing/internal/feedback"
	"pricing/internal/monitoring"
	"pricing/internal/optimizer"
	"pricing/internal/report"
	gormrepository "pricing/internal/repository/gorm"
	"pricing/internal/settings"
)

const (
	PredictorLocal  = "local"
	PredictorRemote = "remote"
)

type App struct {
	Config config.Config
	Logger *zap.Logger

	DB    *db.DB
	Store *gormrepository.Store
	Cache cache.Store

	Locker     *cache.Locker
	Elasticity *elasticity.Estimator
	// Serving is the in-process demand model; nil with a remote predictor.
	Serving       *demand.ModelPredictor
	Predictor     demand.Predictor
	PredictorKind string
	ModelFiles    *demand.FileStore
	Trainer       *demand.Trainer

	Optimizer *optimizer.Service
	Feedback  *feedback.Ingestor
	Monitor   *monitoring.Monitor
	ETL       *features.ETL
	Exporter  *report.Exporter
	Switches  *settings.Switches
	Alerts    *alert.Dispatcher

	closers []func() error
}

// New opens the database and builds every service. Close releases what New
// opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.DB = dbConn
	a.closers = append(a.closers, func() error { return db.Close(dbConn) })

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(dbConn); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}
	a.Store = gormrepository.New(dbConn.Gorm)

	base := cache.New(cfg.Cache)
	if closer, ok := base.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
	a.Cache = cache.Prefixed(base, cfg.Cache.KeyPrefix)
	a.Locker = &cache.Locker{Store: a.Cache, TTL: cfg.Pricing.KeyLockTTL}

	a.Switches = &settings.Switches{Repo: a.Store}
	if err := a.Switches.EnsureDefaults(ctx); err != nil {
		logger.Warn("init default job switches failed", zap.Error(err))
	}

	a.Elasticity = &elasticity.Estimator{
		Repo:     a.Store,
		Cache:    a.Cache,
		CacheTTL: cfg.Elasticity.CacheTTL,
		Default:  cfg.Pricing.DefaultElasticity,
		Options: elasticity.FitOptions{
			MinObs:          cfg.Elasticity.MinObs,
			MinUniquePrices: cfg.Elasticity.MinUniquePrices,
		},
		Concurrency: cfg.Pricing.BatchConcurrency,
		Logger:      logger.Named("elasticity"),
	}

	a.ModelFiles = &demand.FileStore{Path: cfg.Demand.ModelPath}
	a.buildPredictor()
	a.Trainer = &demand.Trainer{
		Repo:   a.Store,
		Files:  a.ModelFiles,
		Params: trainParams(cfg.Demand),
		Logger: logger.Named("demand"),
	}

	a.Optimizer = &optimizer.Service{
		Repo:       a.Store,
		Elasticity: a.Elasticity,
		Predictor:  a.Predictor,
		Locker:     a.Locker,
		Config: optimizer.Config{
			RangeLower: cfg.Pricing.RangeLower,
			RangeUpper: cfg.Pricing.RangeUpper,
			GridSteps:  cfg.Pricing.GridSteps,
			Defaults: optimizer.Rules{
				MinMarginPct:    cfg.Pricing.DefaultMinMarginPct,
				MaxDiscountPct:  cfg.Pricing.DefaultMaxDiscountPct,
				MaxDailyMovePct: cfg.Pricing.DefaultMaxDailyMovePct,
			},
		},
		Concurrency: cfg.Pricing.BatchConcurrency,
		Logger:      logger.Named("optimizer"),
	}
	a.Feedback = &feedback.Ingestor{Repo: a.Store, Locker: a.Locker, Logger: logger.Named("feedback")}

	a.Alerts = buildAlerts(cfg.Alerts, logger.Named("alerts"))
	a.Monitor = &monitoring.Monitor{
		Repo:       a.Store,
		Elasticity: a.Elasticity,
		Alerts:     a.Alerts,
		Thresholds: monitoring.Thresholds{
			MaxMAPE:                  cfg.Alerts.MaxMAPE,
			MinR2:                    cfg.Alerts.MinR2,
			MaxElasticityDrift:       cfg.Alerts.MaxElasticityDrift,
			MinSuggestionCoveragePct: cfg.Alerts.MinSuggestionCoveragePct,
		},
		DriftWindowDays:     cfg.Elasticity.DriftWindowDays,
		DriftDataWindowDays: cfg.Elasticity.DriftDataWindowDays,
		Concurrency:         cfg.Pricing.BatchConcurrency,
		Logger:              logger.Named("monitoring"),
	}
	a.ETL = &features.ETL{Repo: a.Store, Logger: logger.Named("etl")}
	a.Exporter = &report.Exporter{Repo: a.Store, Logger: logger.Named("report")}

	return a, nil
}

func (a *App) buildPredictor() {
	cfg := a.Config.Demand
	if strings.EqualFold(strings.TrimSpace(cfg.Predictor), PredictorRemote) {
		a.PredictorKind = PredictorRemote
		a.Predictor = demand.NewRemotePredictor(cfg.RemoteURL, cfg.RemoteTimeout)
		a.Logger.Info("demand predictor: remote", zap.String("url", cfg.RemoteURL))
		return
	}
	a.PredictorKind = PredictorLocal
	a.Serving = demand.NewModelPredictor(nil)
	a.Predictor = a.Serving
	m, err := a.ModelFiles.Load()
	if err != nil {
		// Requests fail with ErrModelNotLoaded until a model is trained or reloaded.
		a.Logger.Warn("demand model not loaded", zap.String("path", a.ModelFiles.Path), zap.Error(err))
		return
	}
	a.Serving.Swap(m)
	a.Logger.Info("demand model loaded", zap.String("path", a.ModelFiles.Path), zap.Int("trees", len(m.Trees)))
}

// TrainDemand retrains the demand model and installs it when served locally.
func (a *App) TrainDemand(ctx context.Context) (demand.TrainReport, error) {
	m, rep, err := a.Trainer.Train(ctx)
	if err != nil {
		return rep, err
	}
	if a.Serving != nil {
		a.Serving.Swap(m)
	}
	return rep, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func trainParams(cfg config.DemandConfig) demand.TrainParams {
	return demand.TrainParams{
		Trees:        cfg.Trees,
		LearningRate: cfg.LearningRate,
		MaxDepth:     cfg.MaxDepth,
		MinLeaf:      cfg.MinLeaf,
		Subsample:    cfg.Subsample,
		Colsample:    cfg.Colsample,
		Seed:         cfg.Seed,
	}
}

// buildAlerts always returns a dispatcher so breaches are logged; channels
// are attached only when alerts are enabled.
func buildAlerts(cfg config.AlertsConfig, logger *zap.Logger) *alert.Dispatcher {
	d := &alert.Dispatcher{Timeout: 10 * time.Second, Logger: logger}
	if !cfg.Enabled {
		return d
	}
	var senders []alert.Sender
	if u := strings.TrimSpace(cfg.WebhookURL); u != "" {
		senders = append(senders, alert.NewWebhookSender(u, "pricing", 5*time.Second))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, alert.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID, 5*time.Second))
	}
	if len(senders) == 0 {
		logger.Warn("alerts enabled but no channel configured")
	}
	d.Senders = senders
	return d
}
