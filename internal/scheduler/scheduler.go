// Package scheduler runs the lifecycle sweep on a cron schedule inside the API process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models/dto"
)

// Sweeper is the job run on every tick
type Sweeper interface {
	Sweep(ctx context.Context) (*dto.SweepReport, error)
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     zerolog.Logger
}

// New registers the sweep under spec. Overlapping ticks are skipped.
func New(spec string, sweeper Sweeper, timeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	logCtx := log.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{log: logCtx}

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		sweeper: sweeper,
		timeout: timeout,
		log:     logCtx,
	}

	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single sweep bounded by the configured timeout
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}
	s.log.Debug().Int("scanned", report.Scanned).Msg("Scheduled sweep done")
}

// Start begins ticking in the background
func (s *Scheduler) Start() {
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler starting")
	s.cron.Start()
}

// Stop prevents new ticks and waits for a running sweep up to ctx
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("Scheduler stop timed out with a sweep in flight")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
