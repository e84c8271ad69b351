package usecase

import (
	"context"
	"log/slog"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// Dispatcher fans the rendered digest out to every configured destination.
// Destinations are attempted independently; a failure of one never blocks
// the others.
type Dispatcher struct {
	destinations []ports.Destination
	logger       *slog.Logger
}

// NewDispatcher wires the configured destinations.
func NewDispatcher(destinations []ports.Destination, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{destinations: destinations, logger: logger}
}

// Dispatch delivers the digest to each destination in order and records one
// outcome per destination.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.DigestMessage) []domain.DeliveryOutcome {
	outcomes := make([]domain.DeliveryOutcome, 0, len(d.destinations))

	for _, dest := range d.destinations {
		outcome := domain.DeliveryOutcome{Destination: dest.Name()}
		if err := dest.Deliver(ctx, msg); err != nil {
			outcome.Err = err.Error()
			d.warn("delivery failed", "destination", dest.Name(), "error", err)
		} else {
			d.debug("delivery succeeded", "destination", dest.Name())
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
