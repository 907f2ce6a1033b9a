// Package scheduler fires the reminder sweep on a wall-clock interval.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tenant-booking-api/internal/notify"
)

type Sweeper interface {
	Sweep(ctx context.Context) (notify.SweepResult, error)
}

// Lease keeps concurrent replicas from sweeping in the same tick.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

type Scheduler struct {
	sweeper  Sweeper
	lease    Lease
	interval time.Duration
	log      *zap.Logger
}

// New returns a scheduler; lease may be nil, in which case every tick sweeps.
func New(sweeper Sweeper, lease Lease, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{sweeper: sweeper, lease: lease, interval: interval, log: log}
}

// Tick runs one sweep if the lease is free. It reports whether a sweep ran.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx, s.interval)
		if err != nil {
			// a lease outage must not stop reminders; duplicates are tolerated
			s.log.Warn("sweep lease unavailable, sweeping anyway", zap.Error(err))
		} else if !ok {
			s.log.Debug("sweep lease held elsewhere")
			return false, nil
		} else {
			defer release()
		}
	}

	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error("reminder sweep failed",
			zap.Int("matched", res.Matched),
			zap.Int("sent", res.Sent),
			zap.Error(err),
		)
		return true, err
	}
	return true, nil
}

// Run ticks every interval until ctx is cancelled. Errors are logged and the
// next tick retries.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("reminder scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = s.Tick(ctx)
		}
	}
}
