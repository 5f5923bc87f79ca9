package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner runs one refresh over every table.
type Runner interface {
	RefreshAll(ctx context.Context) *Report
}

// Scheduler triggers a refresh once a day at a fixed UTC wall-clock time,
// and optionally once at startup.
type Scheduler struct {
	runner  Runner
	hour    int
	minute  int
	onStart bool
	logger  *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithRunOnStart controls the startup refresh.
func WithRunOnStart(v bool) SchedulerOption {
	return func(s *Scheduler) { s.onStart = v }
}

// NewScheduler creates a scheduler firing daily at hour:minute UTC.
func NewScheduler(runner Runner, hour, minute int, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		hour:    hour,
		minute:  minute,
		onStart: true,
		logger:  zap.NewNop(),
		now:     time.Now,
		after:   time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the first hour:minute UTC strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.onStart {
		s.logger.Info("startup snapshot refresh")
		s.runner.RefreshAll(ctx)
	}

	for {
		next := NextRun(s.now(), s.hour, s.minute)
		s.logger.Info("next snapshot refresh scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(s.now())):
			if ctx.Err() != nil {
				return
			}
			s.runner.RefreshAll(ctx)
		}
	}
}
