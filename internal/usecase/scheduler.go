package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aidigest/internal/ports"
)

// Scheduler wires the daily timer driver with the pipeline use case. The
// timer invokes the same entry point as the HTTP trigger, so a collision
// with a manual run is rejected and logged rather than queued.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring digest job.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.pipeline.Execute(ctx)
		if errors.Is(err, ErrRunActive) {
			s.logger.Warn("scheduled run skipped, another run is active", "trigger", trigger)
			return
		}
		if err != nil {
			s.logger.Error("scheduled run failed to start", "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "run_id", result.RunID, "status", result.Status)
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
