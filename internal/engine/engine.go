// Package engine is the entry point for every user intent and timer callback.
// It keeps the market snapshot in step with wall time and routes mutations to
// the ledger.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"WeEarn/internal/ledger"
	"WeEarn/internal/market"
	"WeEarn/internal/metrics"
	"WeEarn/internal/model"
	"WeEarn/internal/notifier"
	"WeEarn/internal/recorder"
)

// DefaultCashoutDelay is how long a validated cashout stays in success before
// the balance is reset.
const DefaultCashoutDelay = 2 * time.Second

// Options wires the engine's collaborators.
type Options struct {
	Interval     time.Duration
	HistorySize  int
	Source       market.Source
	Ledger       *ledger.Manager
	Sink         notifier.Sink
	Recorder     recorder.Recorder
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	CashoutDelay time.Duration
	Now          func() time.Time
}

// Engine owns the market state and the ledger.
type Engine struct {
	mu        sync.Mutex
	clock     *market.Clock
	collector *market.Collector
	history   *market.RateHistory
	snapshot  model.MarketSnapshot
	alerted   int64
	hasAlert  bool

	ledger   *ledger.Manager
	sink     notifier.Sink
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	cashoutDelay   time.Duration
	cashoutTimer   *time.Timer
	onSessionStart func()
	closed         bool

	// Alerts are delivered off the caller's goroutine; Close cancels and
	// waits for them.
	alertCtx    context.Context
	alertCancel context.CancelFunc
	alertWG     sync.WaitGroup
}

// New builds the engine, preloads rate history from the recorder and derives
// the current block.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if opts.Sink == nil {
		opts.Sink = notifier.LogSink{Logger: opts.Logger}
	}
	if opts.CashoutDelay <= 0 {
		opts.CashoutDelay = DefaultCashoutDelay
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewManager(ctx, ledger.Options{Logger: opts.Logger})
	}

	clock := market.NewClock(opts.Interval)
	e := &Engine{
		clock:        clock,
		collector:    market.NewCollector(opts.Source, clock.Interval()),
		history:      market.NewRateHistory(opts.HistorySize),
		ledger:       opts.Ledger,
		sink:         opts.Sink,
		recorder:     opts.Recorder,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With(slog.String("component", "engine")),
		now:          opts.Now,
		cashoutDelay: opts.CashoutDelay,
	}
	e.alertCtx, e.alertCancel = context.WithCancel(context.WithoutCancel(ctx))
	e.preloadHistory(opts.HistorySize)
	e.Tick(ctx)
	if e.metrics != nil {
		e.metrics.Balance.Set(e.ledger.State().Balance.InexactFloat64())
	}
	return e
}

func (e *Engine) preloadHistory(size int) {
	if size <= 0 {
		size = market.DefaultHistorySize
	}
	current := market.BlockAt(e.now(), e.clock.Interval())
	blocks, err := e.recorder.RecentBlocks(size)
	if err != nil {
		e.logger.Warn("preload rate history failed", tint.Err(err))
		return
	}
	for _, b := range blocks {
		if b.Block < current {
			e.history.Push(b.Rate)
		}
	}
}

// OnSessionStart registers a hook run after every successful activation.
func (e *Engine) OnSessionStart(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSessionStart = fn
}

// Tick re-derives the block from wall time. On a block change it refreshes
// the snapshot, pushes the rate to history, records the block and queues at
// most one Bull/Moon alert for it. Tick never waits on the sink.
func (e *Engine) Tick(ctx context.Context) market.Tick {
	snap, tk, alert := e.sync()
	if tk.Changed {
		e.logger.InfoContext(ctx, "market block changed",
			slog.Int64("block", snap.Block),
			slog.String("tier", string(snap.Tier.Name)),
			slog.Float64("rate", snap.Rate),
			slog.Int("hotel_price", snap.Prices.HotelDeluxe),
			slog.Int("clicker_price", snap.Prices.AutoClicker))
		if err := e.recorder.RecordBlock(&recorder.BlockEvent{
			Block: snap.Block, Draw: snap.Draw, Tier: string(snap.Tier.Name), Rate: snap.Rate,
			HotelPrice: snap.Prices.HotelDeluxe, ClickerPrice: snap.Prices.AutoClicker,
		}); err != nil {
			e.logger.Error("record block", tint.Err(err))
		}
	}
	if alert {
		e.dispatchAlert(snap)
	}
	return tk
}

func (e *Engine) dispatchAlert(snap model.MarketSnapshot) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.alertWG.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.alertWG.Done()
		if err := e.sink.Notify(e.alertCtx, notifier.FormatMarketAlert(snap)); err != nil {
			e.logger.Error("send market alert", slog.String("sink", e.sink.Name()),
				slog.Int64("block", snap.Block), tint.Err(err))
			return
		}
		if e.metrics != nil {
			e.metrics.Alerts.Inc()
		}
	}()
}

// sync observes the clock and applies a block change under the lock.
func (e *Engine) sync() (model.MarketSnapshot, market.Tick, bool) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	tk := e.clock.Observe(now)
	alert := false
	if tk.Changed {
		e.snapshot = e.collector.CollectBlock(tk.Block)
		e.history.Push(e.snapshot.Rate)
		if e.metrics != nil {
			e.metrics.BlockChanges.Inc()
			e.metrics.Rate.Set(e.snapshot.Rate)
		}
		if e.snapshot.Tier.Bullish() && e.ledger.NotificationsEnabled() && (!e.hasAlert || e.alerted != tk.Block) {
			e.alerted = tk.Block
			e.hasAlert = true
			alert = true
		}
	}
	e.snapshot.Remaining = tk.Remaining
	return e.snapshot, tk, alert
}

// Market returns the current snapshot.
func (e *Engine) Market(ctx context.Context) model.MarketSnapshot {
	e.Tick(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// History returns past rates, oldest first.
func (e *Engine) History() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Snapshot()
}

// Wallet returns the ledger view.
func (e *Engine) Wallet() model.Wallet {
	return e.ledger.Wallet(e.now())
}

// Cart returns the cart lines and totals.
func (e *Engine) Cart() ([]model.CartItem, model.CartTotals, error) {
	items := e.ledger.Cart()
	totals, err := e.ledger.CartTotals()
	return items, totals, err
}

// HasSession reports whether an auto-clicker session still needs ticking.
func (e *Engine) HasSession() bool {
	return e.ledger.HasSession()
}

// Close stops pending timers, cancels in-flight alerts and waits for them.
// Later timer callbacks do nothing.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cashoutTimer != nil {
		e.cashoutTimer.Stop()
		e.cashoutTimer = nil
	}
	e.mu.Unlock()

	e.alertCancel()
	e.alertWG.Wait()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) reject(op string, err error) error {
	reason := "other"
	for _, r := range []struct {
		err   error
		label string
	}{
		{ledger.ErrInsufficientFunds, "insufficient_funds"},
		{ledger.ErrInvalidCode, "invalid_code"},
		{ledger.ErrNoInventory, "no_inventory"},
		{ledger.ErrAlreadyActive, "already_active"},
		{ledger.ErrEmptyCart, "empty_cart"},
		{ledger.ErrCartItemNotFound, "cart_item_not_found"},
		{ledger.ErrCashoutPending, "cashout_pending"},
		{ledger.ErrUnknownItem, "unknown_item"},
	} {
		if errors.Is(err, r.err) {
			reason = r.label
			break
		}
	}
	if e.metrics != nil {
		e.metrics.Rejections.WithLabelValues(reason).Inc()
	}
	e.logger.Debug("intent rejected", slog.String("op", op), slog.String("reason", reason))
	return err
}

func (e *Engine) record(eventType string, before, after model.LedgerState, amount float64, note string) {
	if e.metrics != nil {
		e.metrics.Balance.Set(after.Balance.InexactFloat64())
	}
	if err := e.recorder.RecordLedgerEvent(&recorder.LedgerEvent{
		EventType:     eventType,
		BalanceBefore: before.Balance.InexactFloat64(),
		BalanceAfter:  after.Balance.InexactFloat64(),
		Amount:        amount,
		Note:          note,
	}); err != nil {
		e.logger.Error("record ledger event", tint.Err(err))
	}
}
