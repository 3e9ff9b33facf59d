package storage

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"
)

// Persisted key names.
const (
	KeyBalance              = "weearn_balance"
	KeyTotalClicks          = "weearn_total_clicks"
	KeyNotificationsEnabled = "weearn_notifications_enabled"
	KeyVoucherCount         = "weearn_voucher_count"
	KeyAutoClickerCount     = "weearn_autoclicker_count"
	KeyAutoClickerEnd       = "weearn_autoclicker_end"
)

// Session is the persisted part of the game state.
type Session struct {
	Balance              decimal.Decimal
	TotalClicks          int64
	NotificationsEnabled bool
	Vouchers             int
	AutoClickers         int
	// AutoClickerEnd is zero when no session was running.
	AutoClickerEnd time.Time
}

// LoadSession reads every key. Missing, unreadable or corrupt values fall back
// to zero values and never fail the load.
func LoadSession(ctx context.Context, s Store, logger *slog.Logger) Session {
	var out Session
	get := func(key string) (string, bool) {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			logger.Warn("read persisted key failed", slog.String("key", key), tint.Err(err))
			return "", false
		}
		return v, ok
	}
	warn := func(key, v string, err error) {
		logger.Warn("corrupt persisted value, using default", slog.String("key", key), slog.String("value", v), tint.Err(err))
	}

	if v, ok := get(KeyBalance); ok {
		if d, err := decimal.NewFromString(v); err != nil {
			warn(KeyBalance, v, err)
		} else if d.IsNegative() {
			warn(KeyBalance, v, errNegative)
		} else {
			out.Balance = d.Round(2)
		}
	}
	if v, ok := get(KeyTotalClicks); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err != nil || n < 0 {
			warn(KeyTotalClicks, v, orNegative(err))
		} else {
			out.TotalClicks = n
		}
	}
	if v, ok := get(KeyNotificationsEnabled); ok {
		if b, err := strconv.ParseBool(v); err != nil {
			warn(KeyNotificationsEnabled, v, err)
		} else {
			out.NotificationsEnabled = b
		}
	}
	out.Vouchers = loadCount(get, warn, KeyVoucherCount)
	out.AutoClickers = loadCount(get, warn, KeyAutoClickerCount)
	if v, ok := get(KeyAutoClickerEnd); ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err != nil || ms < 0 {
			warn(KeyAutoClickerEnd, v, orNegative(err))
		} else if ms > 0 {
			out.AutoClickerEnd = time.UnixMilli(ms)
		}
	}
	return out
}

func loadCount(get func(string) (string, bool), warn func(string, string, error), key string) int {
	v, ok := get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		warn(key, v, orNegative(err))
		return 0
	}
	return n
}

// SaveSession writes every key in one batch.
func SaveSession(ctx context.Context, s Store, sess Session) error {
	end := "0"
	if !sess.AutoClickerEnd.IsZero() {
		end = strconv.FormatInt(sess.AutoClickerEnd.UnixMilli(), 10)
	}
	return s.SetMany(ctx, map[string]string{
		KeyBalance:              sess.Balance.StringFixed(2),
		KeyTotalClicks:          strconv.FormatInt(sess.TotalClicks, 10),
		KeyNotificationsEnabled: strconv.FormatBool(sess.NotificationsEnabled),
		KeyVoucherCount:         strconv.Itoa(sess.Vouchers),
		KeyAutoClickerCount:     strconv.Itoa(sess.AutoClickers),
		KeyAutoClickerEnd:       end,
	})
}
