package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"WeEarn/internal/calculator"
	"WeEarn/internal/ledger"
	"WeEarn/internal/market"
	"WeEarn/internal/metrics"
	"WeEarn/internal/model"
	"WeEarn/internal/notifier"
	"WeEarn/internal/recorder"
	"WeEarn/internal/storage"
)

const (
	interval = 5 * time.Minute
	secret   = "121519"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureSink struct {
	mu   sync.Mutex
	sent []string
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Notify(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type blockingSink struct {
	release chan struct{}
	started chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Notify(ctx context.Context, _ string) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type captureRecorder struct {
	recorder.NoopRecorder
	mu     sync.Mutex
	recent []recorder.BlockEvent
	blocks []recorder.BlockEvent
	events []recorder.LedgerEvent
}

func (r *captureRecorder) RecordBlock(evt *recorder.BlockEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, *evt)
	return nil
}

func (r *captureRecorder) RecordLedgerEvent(evt *recorder.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *evt)
	return nil
}

func (r *captureRecorder) RecentBlocks(int) ([]recorder.BlockEvent, error) {
	return r.recent, nil
}

func (r *captureRecorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	engine   *Engine
	clock    *fakeClock
	store    storage.Store
	sink     *captureSink
	recorder *captureRecorder
	metrics  *metrics.Metrics
}

// findBlock returns the first block at or after from whose tier matches.
func findBlock(t *testing.T, from int64, match func(model.MarketTier) bool) int64 {
	t.Helper()
	for b := from; b < from+10_000; b++ {
		if match(market.TierFor(b)) {
			return b
		}
	}
	t.Fatal("no matching block")
	return 0
}

// findBlockAfterQuiet returns a bullish block whose predecessor is quiet.
func findBlockAfterQuiet(t *testing.T) int64 {
	t.Helper()
	for b := int64(2); b < 10_000; b++ {
		if isBullish(market.TierFor(b)) && isQuiet(market.TierFor(b-1)) {
			return b
		}
	}
	t.Fatal("no matching block")
	return 0
}

func isBullish(tier model.MarketTier) bool { return tier.Bullish() }
func isQuiet(tier model.MarketTier) bool   { return !tier.Bullish() }

// newFixture starts the engine one second into block, with the persisted
// session seeded from preset.
func newFixture(t *testing.T, block int64, preset map[string]string, delay time.Duration) *fixture {
	t.Helper()
	return newFixtureWithSink(t, block, preset, delay, nil)
}

// newFixtureWithSink is newFixture with alerts going to sink instead of the
// capturing sink.
func newFixtureWithSink(t *testing.T, block int64, preset map[string]string, delay time.Duration, sink notifier.Sink) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if len(preset) > 0 {
		require.NoError(t, store.SetMany(ctx, preset))
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		clock:    &fakeClock{t: market.BlockStart(block, interval).Add(time.Second)},
		store:    store,
		sink:     &captureSink{},
		recorder: &captureRecorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	if sink == nil {
		sink = f.sink
	}
	led := ledger.NewManager(ctx, ledger.Options{Store: store, Secret: ledger.StaticCode(secret), Logger: logger})
	f.engine = New(ctx, Options{
		Interval:     interval,
		HistorySize:  5,
		Ledger:       led,
		Sink:         sink,
		Recorder:     f.recorder,
		Metrics:      f.metrics,
		Logger:       logger,
		CashoutDelay: delay,
		Now:          f.clock.Now,
	})
	t.Cleanup(f.engine.Close)
	return f
}

func TestEngine_ClickUsesBlockRate(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, nil, 0)
	ctx := context.Background()

	snap := f.engine.Market(ctx)
	require.Equal(t, block, snap.Block)
	require.Equal(t, market.TierFor(block).RateMultiplier, snap.Rate)

	st := f.engine.Click(ctx)
	require.True(t, calculator.AddRate(decimal.Zero, snap.Rate).Equal(st.Balance))
	require.Equal(t, int64(1), st.TotalClicks)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Clicks.WithLabelValues("manual")))
}

func TestEngine_BlockChangeAppliedOnce(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, nil, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.False(t, f.engine.Tick(ctx).Changed)
		f.clock.Advance(time.Second)
	}
	require.Len(t, f.engine.History(), 1)
	require.Len(t, f.recorder.blocks, 1)

	f.clock.Advance(interval)
	tk := f.engine.Tick(ctx)
	require.True(t, tk.Changed)
	require.Equal(t, block+1, tk.Block)
	require.False(t, f.engine.Tick(ctx).Changed)

	require.Equal(t, []float64{market.TierFor(block).RateMultiplier, market.TierFor(block + 1).RateMultiplier}, f.engine.History())
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.BlockChanges))
}

func TestEngine_BlockSkippedDuringPause(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, nil, 0)

	f.clock.Advance(3 * interval)
	snap := f.engine.Market(context.Background())
	require.Equal(t, block+3, snap.Block)
	require.Len(t, f.engine.History(), 2)
}

func TestEngine_AlertOncePerBullishBlock(t *testing.T) {
	block := findBlock(t, 1, isBullish)
	f := newFixture(t, block, map[string]string{storage.KeyNotificationsEnabled: "true"}, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.engine.Tick(ctx)
		f.engine.Click(ctx)
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.Alerts) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.sink.count())
}

func TestEngine_AlertDoesNotBlockCaller(t *testing.T) {
	bull := findBlockAfterQuiet(t)
	sink := &blockingSink{release: make(chan struct{}), started: make(chan struct{}, 1)}
	f := newFixtureWithSink(t, bull-1, map[string]string{storage.KeyNotificationsEnabled: "true"}, 0, sink)
	ctx := context.Background()

	f.clock.Advance(interval)
	start := time.Now()
	st := f.engine.Click(ctx)
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Equal(t, int64(1), st.TotalClicks)
	require.Equal(t, bull, f.engine.Market(ctx).Block)

	select {
	case <-sink.started:
	case <-time.After(time.Second):
		t.Fatal("alert was not dispatched")
	}

	// Close cancels the stuck delivery instead of waiting on the sink.
	closed := make(chan struct{})
	go func() {
		f.engine.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		close(sink.release)
		t.Fatal("Close waited on a blocked sink")
	}
}

func TestEngine_NoAlertWhenDisabledOrQuiet(t *testing.T) {
	bull := findBlock(t, 1, isBullish)
	f := newFixture(t, bull, nil, 0)
	f.engine.Tick(context.Background())
	require.Zero(t, f.sink.count())

	quiet := findBlock(t, 1, isQuiet)
	g := newFixture(t, quiet, map[string]string{storage.KeyNotificationsEnabled: "true"}, 0)
	g.engine.Tick(context.Background())
	require.Zero(t, g.sink.count())
}

func TestEngine_AddToCartFreezesPrice(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyBalance: "100000.00"}, 0)
	ctx := context.Background()

	want := market.PriceBlock(market.BlockSource{}, block)
	item, err := f.engine.AddToCart(ctx, model.ItemHotel)
	require.NoError(t, err)
	require.Equal(t, want.HotelDeluxe, item.UnitBasePrice)

	f.clock.Advance(interval)
	require.Equal(t, block+1, f.engine.Market(ctx).Block)

	items, totals, err := f.engine.Cart()
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, want.HotelDeluxe, items[0].UnitBasePrice)
	require.Equal(t, want.HotelDeluxe, totals.Subtotal)

	_, err = f.engine.Checkout(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.engine.Wallet().Inventory.Vouchers)
	require.Equal(t, []string{"CHECKOUT"}, f.recorder.eventTypes())
}

func TestEngine_BuyNowRejection(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, nil, 0)

	_, err := f.engine.BuyNow(context.Background(), model.ItemAutoClicker)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejections.WithLabelValues("insufficient_funds")))
	require.Empty(t, f.recorder.eventTypes())

	_, err = f.engine.BuyNow(context.Background(), model.ItemKind("YACHT"))
	require.ErrorIs(t, err, ledger.ErrUnknownItem)
}

func TestEngine_BuyNowAtCurrentPrice(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyBalance: "3000.00"}, 0)

	price, err := f.engine.BuyNow(context.Background(), model.ItemAutoClicker)
	require.NoError(t, err)
	require.Equal(t, market.PriceBlock(market.BlockSource{}, block).AutoClicker, price)

	w := f.engine.Wallet()
	require.Equal(t, 1, w.Inventory.AutoClickers)
	require.Equal(t, decimal.NewFromInt(int64(3000-price)).StringFixed(2), w.BalanceText)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Purchases.WithLabelValues("buy")))
}

func TestEngine_AutoClickerLifecycle(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyAutoClickerCount: "1"}, 0)
	ctx := context.Background()

	started := 0
	f.engine.OnSessionStart(func() { started++ })

	clicked, expired := f.engine.AutoClickTick(ctx)
	require.False(t, clicked)
	require.False(t, expired)

	_, err := f.engine.ActivateAutoClicker(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, started)

	_, err = f.engine.ActivateAutoClicker(ctx)
	require.ErrorIs(t, err, ledger.ErrAlreadyActive)

	clicked, _ = f.engine.AutoClickTick(ctx)
	require.True(t, clicked)
	require.True(t, f.engine.HasSession())

	f.clock.Advance(ledger.DefaultAutoClickerDuration)
	clicked, expired = f.engine.AutoClickTick(ctx)
	require.False(t, clicked)
	require.True(t, expired)
	require.False(t, f.engine.HasSession())
	require.Equal(t, int64(1), f.engine.Wallet().TotalClicks)
	require.Equal(t, []string{"ACTIVATE", "SESSION_END"}, f.recorder.eventTypes())
}

func TestEngine_CashoutResetsAfterDelay(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyBalance: "42.50"}, 10*time.Millisecond)
	ctx := context.Background()

	require.ErrorIs(t, f.engine.SubmitCashout(ctx, "000000"), ledger.ErrInvalidCode)
	require.Equal(t, model.CashoutError, f.engine.Wallet().Cashout)
	f.engine.EditCashoutCode()
	require.Equal(t, model.CashoutIdle, f.engine.Wallet().Cashout)

	require.NoError(t, f.engine.SubmitCashout(ctx, secret))
	require.Equal(t, model.CashoutSuccess, f.engine.Wallet().Cashout)
	require.ErrorIs(t, f.engine.SubmitCashout(ctx, secret), ledger.ErrCashoutPending)

	require.Eventually(t, func() bool {
		w := f.engine.Wallet()
		return w.BalanceText == "0.00" && w.Cashout == model.CashoutIdle
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_CloseCancelsCashout(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyBalance: "42.50"}, 30*time.Millisecond)

	require.NoError(t, f.engine.SubmitCashout(context.Background(), secret))
	f.engine.Close()
	time.Sleep(80 * time.Millisecond)

	require.Equal(t, "42.50", f.engine.Wallet().BalanceText)
}

func TestEngine_ClosedEngineSkipsCashoutReset(t *testing.T) {
	block := findBlock(t, 1, isQuiet)
	f := newFixture(t, block, map[string]string{storage.KeyBalance: "42.50"}, time.Hour)

	require.NoError(t, f.engine.SubmitCashout(context.Background(), secret))
	f.engine.Close()
	f.engine.completeCashout()

	w := f.engine.Wallet()
	require.Equal(t, "42.50", w.BalanceText)
	require.Equal(t, model.CashoutSuccess, w.Cashout)
	require.Empty(t, f.recorder.eventTypes())
}

func TestEngine_PreloadSkipsCurrentBlock(t *testing.T) {
	block := findBlock(t, 10, isQuiet)
	ctx := context.Background()
	rec := &captureRecorder{recent: []recorder.BlockEvent{
		{Block: block - 2, Rate: 0.1},
		{Block: block - 1, Rate: 2.0},
		{Block: block, Rate: market.TierFor(block).RateMultiplier},
	}}
	clock := &fakeClock{t: market.BlockStart(block, interval)}
	e := New(ctx, Options{
		Interval:    interval,
		HistorySize: 30,
		Recorder:    rec,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock.Now,
	})
	defer e.Close()

	require.Equal(t, []float64{0.1, 2.0, market.TierFor(block).RateMultiplier}, e.History())
}
