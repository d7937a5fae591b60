package usecase

import (
	"context"
	"time"

	"NewsPublisher/internal/ports"
)

// Loop wires the interval driver with the coordinator for loop mode.
type Loop struct {
	driver      ports.Scheduler
	coordinator *Coordinator
}

// NewLoop returns a helper to start/stop recurring cycles.
func NewLoop(driver ports.Scheduler, coordinator *Coordinator) *Loop {
	return &Loop{driver: driver, coordinator: coordinator}
}

// Start registers the coordinator cycle with the provided scheduler.
func (l *Loop) Start(ctx context.Context) error {
	if l.driver == nil || l.coordinator == nil {
		return nil
	}

	job := func(time.Time) {
		_ = l.coordinator.RunCycle(ctx)
	}

	return l.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (l *Loop) Stop(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}

	return l.driver.Stop(ctx)
}
