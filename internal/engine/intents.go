package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"WeEarn/internal/ledger"
	"WeEarn/internal/model"
)

// Click credits one manual click at the current block's rate.
func (e *Engine) Click(ctx context.Context) model.LedgerState {
	snap := e.Market(ctx)
	st := e.ledger.Click(snap.Rate)
	if e.metrics != nil {
		e.metrics.Clicks.WithLabelValues("manual").Inc()
		e.metrics.Balance.Set(st.Balance.InexactFloat64())
	}
	return st
}

// AutoClickTick is the auto-clicker timer callback.
func (e *Engine) AutoClickTick(ctx context.Context) (clicked, expired bool) {
	if e.isClosed() {
		return false, false
	}
	snap := e.Market(ctx)
	before := e.ledger.State()
	clicked, expired = e.ledger.AutoClickTick(e.now(), snap.Rate)
	switch {
	case clicked && e.metrics != nil:
		e.metrics.Clicks.WithLabelValues("auto").Inc()
		e.metrics.Balance.Set(e.ledger.State().Balance.InexactFloat64())
	case expired:
		e.logger.Info("auto-clicker session ended")
		e.record("SESSION_END", before, before, 0, "")
	}
	return clicked, expired
}

// BuyNow purchases one unit at the current block price.
func (e *Engine) BuyNow(ctx context.Context, kind model.ItemKind) (int, error) {
	snap := e.Market(ctx)
	price, ok := snap.Prices.PriceOf(kind)
	if !ok {
		return 0, e.reject("buy", ledger.ErrUnknownItem)
	}
	before := e.ledger.State()
	if err := e.ledger.Purchase(kind, price); err != nil {
		return price, e.reject("buy", err)
	}
	e.count("buy")
	e.record("PURCHASE", before, e.ledger.State(), float64(price), string(kind))
	return price, nil
}

// AddToCart adds kind at the current block price, frozen from now on.
func (e *Engine) AddToCart(ctx context.Context, kind model.ItemKind) (model.CartItem, error) {
	snap := e.Market(ctx)
	price, ok := snap.Prices.PriceOf(kind)
	if !ok {
		return model.CartItem{}, e.reject("add_to_cart", ledger.ErrUnknownItem)
	}
	item, err := e.ledger.AddToCart(kind, price)
	if err != nil {
		return item, e.reject("add_to_cart", err)
	}
	return item, nil
}

// SetNights updates a hotel line.
func (e *Engine) SetNights(id string, nights int) (model.CartItem, error) {
	it, err := e.ledger.SetNights(id, nights)
	if err != nil {
		return it, e.reject("set_nights", err)
	}
	return it, nil
}

// SetPeople updates a hotel line.
func (e *Engine) SetPeople(id string, people int) (model.CartItem, error) {
	it, err := e.ledger.SetPeople(id, people)
	if err != nil {
		return it, e.reject("set_people", err)
	}
	return it, nil
}

// SetQuantity updates an auto-clicker line.
func (e *Engine) SetQuantity(id string, quantity int) (model.CartItem, error) {
	it, err := e.ledger.SetQuantity(id, quantity)
	if err != nil {
		return it, e.reject("set_quantity", err)
	}
	return it, nil
}

// RemoveFromCart drops a line.
func (e *Engine) RemoveFromCart(id string) error {
	if err := e.ledger.RemoveFromCart(id); err != nil {
		return e.reject("remove_from_cart", err)
	}
	return nil
}

// Checkout pays for the cart.
func (e *Engine) Checkout(_ context.Context) (model.CartTotals, error) {
	before := e.ledger.State()
	totals, err := e.ledger.Checkout()
	if err != nil {
		return totals, e.reject("checkout", err)
	}
	e.count("checkout")
	e.record("CHECKOUT", before, e.ledger.State(), float64(totals.Total),
		fmt.Sprintf("subtotal=%d tax=%d", totals.Subtotal, totals.Tax))
	return totals, nil
}

// Redeem consumes a hotel voucher.
func (e *Engine) Redeem(_ context.Context, code string) error {
	st := e.ledger.State()
	if err := e.ledger.RedeemVoucher(code); err != nil {
		return e.reject("redeem", err)
	}
	e.record("REDEEM", st, st, 1, "hotel voucher")
	return nil
}

// ActivateAutoClicker starts a session and runs the session hook.
func (e *Engine) ActivateAutoClicker(_ context.Context) (model.AutoClickerSession, error) {
	sess, err := e.ledger.ActivateAutoClicker(e.now())
	if err != nil {
		return sess, e.reject("activate", err)
	}
	st := e.ledger.State()
	e.record("ACTIVATE", st, st, 1, "ends "+sess.EndsAt.Format(time.RFC3339))
	e.logger.Info("auto-clicker session started", slog.Time("ends_at", sess.EndsAt))

	e.mu.Lock()
	hook := e.onSessionStart
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return sess, nil
}

// SubmitCashout validates the code; on success the balance is reset after
// the cashout delay.
func (e *Engine) SubmitCashout(_ context.Context, code string) error {
	if err := e.ledger.SubmitCashout(code); err != nil {
		return e.reject("cashout", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.cashoutTimer = time.AfterFunc(e.cashoutDelay, e.completeCashout)
	return nil
}

func (e *Engine) completeCashout() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.cashoutTimer = nil
	before := e.ledger.State()
	paid, ok := e.ledger.CompleteCashout()
	e.mu.Unlock()
	if !ok {
		return
	}

	e.count("cashout")
	e.record("CASHOUT", before, e.ledger.State(), paid.InexactFloat64(), "")
	e.logger.Info("cashout completed", slog.String("amount", paid.StringFixed(2)))
}

// EditCashoutCode clears a cashout error.
func (e *Engine) EditCashoutCode() {
	e.ledger.EditCashoutCode()
}

// SetNotifications toggles Bull/Moon alerts.
func (e *Engine) SetNotifications(enabled bool) {
	e.ledger.SetNotifications(enabled)
}

func (e *Engine) count(flow string) {
	if e.metrics != nil {
		e.metrics.Purchases.WithLabelValues(flow).Inc()
	}
}
