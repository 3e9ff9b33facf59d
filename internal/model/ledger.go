package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerState is the persisted balance and click counter.
type LedgerState struct {
	Balance     decimal.Decimal
	TotalClicks int64
}

// Inventory counts owned consumables.
type Inventory struct {
	Vouchers     int
	AutoClickers int
}

// AutoClickerSession is active while EndsAt is after now.
type AutoClickerSession struct {
	EndsAt time.Time
}

// Active reports whether the session still runs at now.
func (s *AutoClickerSession) Active(now time.Time) bool {
	return s != nil && s.EndsAt.After(now)
}

// CashoutState is the cashout flow position.
type CashoutState string

const (
	CashoutIdle    CashoutState = "IDLE"
	CashoutSuccess CashoutState = "SUCCESS"
	CashoutError   CashoutState = "ERROR"
)

// Wallet is a read-only view of the ledger for rendering.
type Wallet struct {
	Balance              float64
	BalanceText          string
	TotalClicks          int64
	Inventory            Inventory
	Session              *AutoClickerSession
	Cashout              CashoutState
	NotificationsEnabled bool
}
