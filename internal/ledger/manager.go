// Package ledger owns the balance, inventory, cart and auto-clicker session.
// Every mutation runs under one mutex, so manual clicks and auto-clicks never
// race on the balance read-modify-write.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"

	"WeEarn/internal/calculator"
	"WeEarn/internal/model"
	"WeEarn/internal/storage"
)

// DefaultAutoClickerDuration is how long one charge runs.
const DefaultAutoClickerDuration = 5 * time.Minute

// Manager is the session ledger.
type Manager struct {
	mu     sync.Mutex
	store  storage.Store
	secret Credential
	logger *slog.Logger

	autoDuration time.Duration

	state   model.LedgerState
	inv     model.Inventory
	session *model.AutoClickerSession
	notify  bool
	cart    []model.CartItem
	cashout model.CashoutState
}

// Options configures a Manager.
type Options struct {
	Store               storage.Store
	Secret              Credential
	AutoClickerDuration time.Duration
	Logger              *slog.Logger
}

// NewManager loads the persisted session. It never fails: unreadable values
// start at zero.
func NewManager(ctx context.Context, opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AutoClickerDuration <= 0 {
		opts.AutoClickerDuration = DefaultAutoClickerDuration
	}
	if opts.Secret == nil {
		opts.Secret = StaticCode("")
	}

	sess := storage.LoadSession(ctx, opts.Store, opts.Logger)
	m := &Manager{
		store:        opts.Store,
		secret:       opts.Secret,
		logger:       opts.Logger.With(slog.String("component", "ledger")),
		autoDuration: opts.AutoClickerDuration,
		state:        model.LedgerState{Balance: sess.Balance, TotalClicks: sess.TotalClicks},
		inv:          model.Inventory{Vouchers: sess.Vouchers, AutoClickers: sess.AutoClickers},
		notify:       sess.NotificationsEnabled,
		cashout:      model.CashoutIdle,
	}
	if !sess.AutoClickerEnd.IsZero() {
		m.session = &model.AutoClickerSession{EndsAt: sess.AutoClickerEnd}
	}
	return m
}

// Click credits one manual click worth rate.
func (m *Manager) Click(rate float64) model.LedgerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickLocked(rate)
	m.save()
	return m.state
}

func (m *Manager) clickLocked(rate float64) {
	m.state.Balance = calculator.AddRate(m.state.Balance, rate)
	m.state.TotalClicks++
}

// AutoClickTick applies one synthetic click while the session is active. On
// the first tick at or after the session end it clears the session instead.
func (m *Manager) AutoClickTick(now time.Time, rate float64) (clicked, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return false, false
	}
	if !m.session.Active(now) {
		m.session = nil
		m.save()
		return false, true
	}
	m.clickLocked(rate)
	m.save()
	return true, false
}

// Purchase buys one unit of kind at price straight from the store.
func (m *Manager) Purchase(kind model.ItemKind, price int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind != model.ItemHotel && kind != model.ItemAutoClicker {
		return ErrUnknownItem
	}
	if !m.canAffordLocked(price) {
		return ErrInsufficientFunds
	}
	m.debitLocked(price)
	m.grantLocked(kind, 1)
	m.save()
	return nil
}

// Checkout pays for the whole cart, grants its units and clears it.
func (m *Manager) Checkout() (model.CartTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.cart) == 0 {
		return model.CartTotals{}, ErrEmptyCart
	}
	totals, err := calculator.CartTotals(m.cart)
	if err != nil {
		return model.CartTotals{}, err
	}
	if !m.canAffordLocked(totals.Total) {
		return totals, ErrInsufficientFunds
	}
	m.debitLocked(totals.Total)
	for _, item := range m.cart {
		m.grantLocked(item.Kind, calculator.Units(item))
	}
	m.cart = nil
	m.save()
	return totals, nil
}

// RedeemVoucher consumes one hotel voucher. A wrong code is rejected before
// the count is looked at.
func (m *Manager) RedeemVoucher(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.secret.Verify(code) {
		return ErrInvalidCode
	}
	if m.inv.Vouchers <= 0 {
		return ErrNoInventory
	}
	m.inv.Vouchers--
	m.save()
	return nil
}

// ActivateAutoClicker consumes one charge and starts a session ending after
// the configured duration.
func (m *Manager) ActivateAutoClicker(now time.Time) (model.AutoClickerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Active(now) {
		return *m.session, ErrAlreadyActive
	}
	if m.inv.AutoClickers <= 0 {
		return model.AutoClickerSession{}, ErrNoInventory
	}
	m.inv.AutoClickers--
	m.session = &model.AutoClickerSession{EndsAt: now.Add(m.autoDuration)}
	m.save()
	return *m.session, nil
}

// SubmitCashout checks the code. On success the flow waits in CashoutSuccess
// until CompleteCashout; on mismatch it moves to CashoutError.
func (m *Manager) SubmitCashout(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cashout == model.CashoutSuccess {
		return ErrCashoutPending
	}
	if !m.secret.Verify(code) {
		m.cashout = model.CashoutError
		return ErrInvalidCode
	}
	m.cashout = model.CashoutSuccess
	return nil
}

// CompleteCashout zeroes the balance and returns the amount paid out. It is a
// no-op unless a cashout is pending.
func (m *Manager) CompleteCashout() (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cashout != model.CashoutSuccess {
		return decimal.Zero, false
	}
	paid := m.state.Balance
	m.state.Balance = decimal.Zero
	m.cashout = model.CashoutIdle
	m.save()
	return paid, true
}

// EditCashoutCode clears an error state, as when the user edits the code.
func (m *Manager) EditCashoutCode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cashout == model.CashoutError {
		m.cashout = model.CashoutIdle
	}
}

// SetNotifications toggles market alerts.
func (m *Manager) SetNotifications(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = enabled
	m.save()
}

// NotificationsEnabled reports the alert toggle.
func (m *Manager) NotificationsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notify
}

// State returns the balance and click counter.
func (m *Manager) State() model.LedgerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Inventory returns the owned consumables.
func (m *Manager) Inventory() model.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inv
}

// Session returns the active auto-clicker session, if any.
func (m *Manager) Session(now time.Time) (model.AutoClickerSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Active(now) {
		return model.AutoClickerSession{}, false
	}
	return *m.session, true
}

// HasSession reports whether a session exists, including one that has
// expired but not yet been cleared by a tick.
func (m *Manager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Wallet returns a read-only view for rendering.
func (m *Manager) Wallet(now time.Time) model.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := model.Wallet{
		Balance:              m.state.Balance.InexactFloat64(),
		BalanceText:          m.state.Balance.StringFixed(2),
		TotalClicks:          m.state.TotalClicks,
		Inventory:            m.inv,
		Cashout:              m.cashout,
		NotificationsEnabled: m.notify,
	}
	if m.session.Active(now) {
		s := *m.session
		w.Session = &s
	}
	return w
}

func (m *Manager) canAffordLocked(amount int) bool {
	return amount >= 0 && m.state.Balance.GreaterThanOrEqual(decimal.NewFromInt(int64(amount)))
}

func (m *Manager) debitLocked(amount int) {
	m.state.Balance = calculator.RoundCents(m.state.Balance.Sub(decimal.NewFromInt(int64(amount))))
}

func (m *Manager) grantLocked(kind model.ItemKind, units int) {
	switch kind {
	case model.ItemHotel:
		m.inv.Vouchers += units
	case model.ItemAutoClicker:
		m.inv.AutoClickers += units
	}
}

func (m *Manager) save() {
	sess := storage.Session{
		Balance:              m.state.Balance,
		TotalClicks:          m.state.TotalClicks,
		NotificationsEnabled: m.notify,
		Vouchers:             m.inv.Vouchers,
		AutoClickers:         m.inv.AutoClickers,
	}
	if m.session != nil {
		sess.AutoClickerEnd = m.session.EndsAt
	}
	if err := storage.SaveSession(context.Background(), m.store, sess); err != nil {
		m.logger.Error("persist ledger failed", tint.Err(err))
	}
}

func newItemID() string {
	return uuid.NewString()
}
