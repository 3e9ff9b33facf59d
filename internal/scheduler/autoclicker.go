package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultCadence is the auto-clicker tick period.
const DefaultCadence = 200 * time.Millisecond

var errAlreadyRunning = errors.New("auto-clicker is already running")

// AutoTicker is the engine surface the worker drives.
type AutoTicker interface {
	AutoClickTick(ctx context.Context) (clicked, expired bool)
	HasSession() bool
}

// AutoClicker ticks the engine at a fixed cadence while a session exists and
// exits on its own once the session is cleared.
type AutoClicker struct {
	target  AutoTicker
	cadence time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

// NewAutoClicker creates a stopped worker.
func NewAutoClicker(target AutoTicker, cadence time.Duration, logger *slog.Logger) *AutoClicker {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoClicker{
		target:  target,
		cadence: cadence,
		logger:  logger.With(slog.String("component", "autoclicker")),
	}
}

// Start launches the worker.
func (w *AutoClicker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		w.run(runCtx)
	}()
	return nil
}

// Stop cancels the worker and waits for it to exit.
func (w *AutoClicker) Stop() {
	w.mu.Lock()
	if w.isRunning && w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// IsRunning reports whether the worker is ticking.
func (w *AutoClicker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *AutoClicker) run(ctx context.Context) {
	w.logger.Info("auto-clicker started", slog.Duration("cadence", w.cadence))
	ticker := time.NewTicker(w.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.markStopped()
			w.logger.Info("auto-clicker stopped")
			return
		case <-ticker.C:
			w.target.AutoClickTick(ctx)
			if w.finishIfIdle() {
				w.logger.Info("auto-clicker finished")
				return
			}
		}
	}
}

// finishIfIdle marks the worker stopped when no session is left. It holds
// the worker lock so a concurrent Start sees either a running worker that
// will tick the new session or a stopped one it can restart.
func (w *AutoClicker) finishIfIdle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target.HasSession() {
		return false
	}
	w.isRunning = false
	w.cancelFunc = nil
	return true
}

func (w *AutoClicker) markStopped() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.isRunning = false
	w.cancelFunc = nil
}
