package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iho/loanex/internal/usecase"
)

// SettlementRunner triggers settlement batches.
type SettlementRunner interface {
	RunDaily(ctx context.Context) (*usecase.RunReport, error)
	RunMonthly(ctx context.Context) (*usecase.RunReport, error)
	RunOneTime(ctx context.Context) (*usecase.RunReport, error)
}

// Scheduler fires settlement batches at local midnight. Daily and one-time
// batches run every night; the monthly batch runs on the first of the month.
type Scheduler struct {
	runner SettlementRunner
	logger *slog.Logger
	loc    *time.Location
}

// Config for Scheduler.
type Config struct {
	Runner   SettlementRunner
	Logger   *slog.Logger
	Location *time.Location
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Scheduler{
		runner: cfg.Runner,
		logger: cfg.Logger,
		loc:    cfg.Location,
	}
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("settlement scheduler started",
		slog.String("timezone", s.loc.String()))

	for {
		now := time.Now().In(s.loc)
		next := nextMidnight(now)

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("settlement scheduler shutting down")
			return ctx.Err()
		case fired := <-timer.C:
			s.runOnce(ctx, fired.In(s.loc))
		}
	}
}

// runOnce fires the batches due at the given instant.
func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	s.runBatch(ctx, "DAY", s.runner.RunDaily)
	s.runBatch(ctx, "ONE_TIME", s.runner.RunOneTime)

	if now.Day() == 1 {
		s.runBatch(ctx, "MONTH", s.runner.RunMonthly)
	}
}

func (s *Scheduler) runBatch(ctx context.Context, interval string, run func(context.Context) (*usecase.RunReport, error)) {
	report, err := run(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrSettlementRunning) {
			// Another instance holds the period lease.
			s.logger.Info("settlement batch already running elsewhere",
				slog.String("interval", interval))
			return
		}

		s.logger.Error("settlement batch failed",
			slog.String("interval", interval),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Info("settlement batch finished",
		slog.String("interval", interval),
		slog.Int("matched", report.Matched),
		slog.Int("settled", report.Settled),
		slog.Int("closed", report.Closed),
		slog.Int("failed", report.Failed))
}

// nextMidnight returns the first midnight strictly after now.
func nextMidnight(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, 1)
}
