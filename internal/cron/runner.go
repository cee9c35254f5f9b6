package cronrunner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Gate decides whether a switch-guarded job may run.
type Gate interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// Job is one scheduled unit. Spec uses the seconds-first cron format; an
// empty Spec leaves the job unscheduled.
type Job struct {
	Name    string
	Spec    string
	Switch  string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
	gate    Gate
}

func New(logger *zap.Logger, baseCtx context.Context, gate Gate) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	cl := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
		gate:    gate,
	}
}

func (r *Runner) Add(job Job) (cron.EntryID, error) {
	if strings.TrimSpace(job.Spec) == "" {
		if r.logger != nil {
			r.logger.Info("cron job not scheduled", zap.String("job", job.Name))
		}
		return 0, nil
	}
	if job.Run == nil {
		return 0, errors.New("cron job has no run func: " + job.Name)
	}
	id, err := r.cron.AddFunc(job.Spec, func() { _ = r.Execute(r.baseCtx, job) })
	if err != nil {
		return 0, err
	}
	if r.logger != nil {
		r.logger.Info("cron job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	}
	return id, nil
}

// Execute runs job once with its switch check, timeout and logging. It is
// what the scheduler calls and what tests drive directly.
func (r *Runner) Execute(ctx context.Context, job Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if job.Switch != "" && r.gate != nil && !r.gate.IsEnabled(ctx, job.Switch, true) {
		if r.logger != nil {
			r.logger.Info("cron job disabled by switch", zap.String("job", job.Name), zap.String("switch", job.Switch))
		}
		return nil
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	if r.logger != nil {
		if err != nil {
			r.logger.Warn("cron job failed", zap.String("job", job.Name), zap.Duration("duration", time.Since(start)), zap.Error(err))
		} else {
			r.logger.Info("cron job finished", zap.String("job", job.Name), zap.Duration("duration", time.Since(start)))
		}
	}
	return err
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}

// cronLogger adapts zap to cron.Logger for the job wrappers.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Sugar().Infow(msg, keysAndValues...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
	}
}
