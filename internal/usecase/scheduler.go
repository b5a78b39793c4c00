package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	settings func() domain.RunSettings
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs. settings is
// evaluated on every trigger.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, settings func() domain.RunSettings, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, settings: settings, logger: logger}
}

// Start registers the pipeline with the provided scheduler. A trigger that
// fires while a run is active is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil || s.settings == nil {
		return nil
	}

	job := func(trigger time.Time) {
		run, err := s.pipeline.Start(ctx, s.settings())
		switch {
		case errors.Is(err, domain.ErrConcurrentRun):
			s.log(slog.LevelWarn, "scheduled run skipped, pipeline busy", "trigger", trigger, "active", run.RunID)
		case err != nil:
			s.log(slog.LevelError, "scheduled run not started", "trigger", trigger, "error", err)
		default:
			s.log(slog.LevelInfo, "scheduled run started", "trigger", trigger, "run", run.RunID)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) log(level slog.Level, msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Log(context.Background(), level, msg, args...)
	}
}
