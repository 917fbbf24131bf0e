package usecase

import (
	"context"
	"log/slog"
	"time"

	"nudge/internal/ports"
)

// Scheduler wires the cron driver with the publishing pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring publications.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, location *time.Location, logger *slog.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, location: location, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.pipeline.ProcessWeek(ctx, trigger.In(s.location)); err != nil {
			s.logger.Error("scheduled publish failed", "error", err)
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
