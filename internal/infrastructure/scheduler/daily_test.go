package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNextRunAtLaterToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 6, 30, 0, 0, time.UTC)
	next := nextRunAt(now, 8, 0)

	want := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRunAtRollsOverToTomorrow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	next := nextRunAt(now, 8, 0)

	want := time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextRunAtExactBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	next := nextRunAt(now, 8, 0)

	if !next.After(now) {
		t.Fatalf("next run must be strictly after now, got %v", next)
	}
	if next.Day() != 11 {
		t.Fatalf("expected rollover to the next day, got %v", next)
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler(8, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := d.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
}
