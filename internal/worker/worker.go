package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"pizzawars/internal/config"
	"pizzawars/internal/game"
)

// Jobs is the slice of the game service the scheduler drives.
type Jobs interface {
	RefreshLocationPerformance(ctx context.Context) (map[string]float64, error)
	RegenerateChallenges(ctx context.Context, ts game.Timescale) (game.BatchReport, error)
}

// Worker runs the periodic world jobs: the performance drift and the
// challenge rotation for every player.
type Worker struct {
	cron *cron.Cron
	jobs Jobs
	log  *slog.Logger
	ctx  context.Context
}

func New(cfg config.WorkerConfig, logger *slog.Logger, jobs Jobs) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{log: logger}
	w := &Worker{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs: jobs,
		log:  logger,
		ctx:  context.Background(),
	}

	schedules := []struct {
		name string
		expr string
		run  func()
	}{
		{"performance", cfg.PerformanceSchedule, func() { _ = w.refreshPerformance(w.ctx) }},
		{"daily challenges", cfg.DailyChallengeSchedule, func() { _ = w.regenerate(w.ctx, game.Daily) }},
		{"weekly challenges", cfg.WeeklyChallengeSchedule, func() { _ = w.regenerate(w.ctx, game.Weekly) }},
	}
	for _, s := range schedules {
		if _, err := w.cron.AddFunc(s.expr, s.run); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", s.name, s.expr, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then waits for running jobs.
func (w *Worker) Run(ctx context.Context) {
	w.ctx = ctx
	w.cron.Start()
	w.log.Info("worker started", "jobs", len(w.cron.Entries()))

	<-ctx.Done()
	done := w.cron.Stop()
	<-done.Done()
	w.log.Info("worker shutdown")
}

// RunOnce executes every job a single time.
func (w *Worker) RunOnce(ctx context.Context) error {
	return errors.Join(
		w.refreshPerformance(ctx),
		w.regenerate(ctx, game.Daily),
		w.regenerate(ctx, game.Weekly),
	)
}

func (w *Worker) refreshPerformance(ctx context.Context) error {
	started := time.Now()
	multipliers, err := w.jobs.RefreshLocationPerformance(ctx)
	if err != nil {
		w.log.Error("performance refresh failed", "err", err)
		return fmt.Errorf("refresh performance: %w", err)
	}
	w.log.Info("performance refresh complete", "locations", len(multipliers), "took", time.Since(started).String())
	return nil
}

func (w *Worker) regenerate(ctx context.Context, ts game.Timescale) error {
	started := time.Now()
	report, err := w.jobs.RegenerateChallenges(ctx, ts)
	if err != nil {
		w.log.Error("challenge regeneration failed", "timescale", ts, "err", err)
		return fmt.Errorf("regenerate %s challenges: %w", ts, err)
	}
	w.log.Info("challenge regeneration complete",
		"timescale", ts,
		"processed", report.Processed,
		"failed", report.Failed,
		"took", time.Since(started).String(),
	)
	return nil
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
