// Package scheduler drives the engine from timers and chat commands.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"WeEarn/internal/engine"
)

// TickSpec is the cron spec for the market tick.
const TickSpec = "@every 1s"

// Options configures the scheduler.
type Options struct {
	// Cadence is the auto-clicker tick period.
	Cadence time.Duration
	Logger  *slog.Logger
}

// Scheduler owns the market tick and the auto-clicker worker.
type Scheduler struct {
	Cron    *cron.Cron
	Engine  *engine.Engine
	clicker *AutoClicker
	logger  *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(eng *engine.Engine, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("component", "scheduler"))
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		Engine:  eng,
		clicker: NewAutoClicker(eng, opts.Cadence, opts.Logger),
		logger:  logger,
	}
}

// Start registers the market tick, resumes a restored auto-clicker session and
// starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.Cron.AddFunc(TickSpec, func() { s.Engine.Tick(ctx) }); err != nil {
		return fmt.Errorf("register market tick: %w", err)
	}
	s.Engine.OnSessionStart(s.startClicker)

	s.Engine.Tick(ctx)
	if s.Engine.HasSession() {
		s.startClicker()
	}
	s.Cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron runner and the auto-clicker. No timer mutates the
// ledger once Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	<-s.Cron.Stop().Done()
	s.clicker.Stop()
	s.logger.Info("scheduler stopped")
}

// AutoClickerRunning reports whether the auto-clicker worker is ticking.
func (s *Scheduler) AutoClickerRunning() bool {
	return s.clicker.IsRunning()
}

func (s *Scheduler) startClicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx == nil {
		return
	}
	if err := s.clicker.Start(s.ctx); err != nil {
		s.logger.Debug("auto-clicker not started", slog.String("reason", err.Error()))
	}
}
