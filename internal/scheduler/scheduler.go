package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CycleFunc runs one monitoring cycle.
type CycleFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	// Interval is the target spacing between cycle starts.
	Interval time.Duration
	// MinSleep floors the pause between cycles even when a cycle overran
	// the interval, so upstream rate limits get some slack.
	MinSleep time.Duration
	// StartupDelay defers the first cycle.
	StartupDelay time.Duration
}

// Scheduler drives repeated execution of monitoring cycles. Unlike an
// aligned ticker, pacing is measured from each cycle's start:
// sleep = max(interval - elapsed, minSleep).
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.MinSleep <= 0 {
		opts.MinSleep = time.Second
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the cycle function until ctx is cancelled. Cycle
// errors are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := s.wait(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	for {
		start := time.Now()
		if err := cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Msg("cycle execution failed")
		}

		elapsed := time.Since(start)
		sleep := s.opts.Interval - elapsed
		if sleep < s.opts.MinSleep {
			sleep = s.opts.MinSleep
		}
		s.logger.Debug().Dur("elapsed", elapsed).Dur("sleep", sleep).Msg("cycle finished")

		if err := s.wait(ctx, sleep); err != nil {
			return err
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
