package scheduler

import (
	"context"
	"time"

	"aidigest/internal/ports"
)

// DailyScheduler fires the job once per day at a fixed local time.
type DailyScheduler struct {
	hour   int
	minute int
	loc    *time.Location
	stop   chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler firing at hour:minute in loc.
func NewDailyScheduler(hour, minute int, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{hour: hour, minute: minute, loc: loc}
}

// Start launches the timer goroutine. Calling Start twice is a no-op.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if d.stop != nil {
		return nil
	}

	d.stop = make(chan struct{})
	go func() {
		for {
			next := nextRunAt(time.Now().In(d.loc), d.hour, d.minute)
			timer := time.NewTimer(time.Until(next))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-d.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the timer goroutine.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}

// nextRunAt returns the next hour:minute occurrence strictly after now.
func nextRunAt(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
