package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"WeEarn/internal/ledger"
	"WeEarn/internal/model"
	"WeEarn/internal/notifier"
)

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(command string) string {
	ctx := s.context()
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/click":
		before := s.Engine.Wallet()
		st := s.Engine.Click(ctx)
		return fmt.Sprintf("👆 %s → %s $WE", before.BalanceText, st.Balance.StringFixed(2))
	case "/status", "/wallet":
		return notifier.FormatWallet(s.Engine.Wallet())
	case "/market":
		return notifier.FormatMarket(s.Engine.Market(ctx))
	case "/history":
		return notifier.FormatHistory(s.Engine.History())
	case "/store":
		return notifier.FormatStore(s.Engine.Market(ctx))
	case "/buy":
		kind, ok := parseKind(args)
		if !ok {
			return "Usage: /buy hotel|clicker"
		}
		price, err := s.Engine.BuyNow(ctx, kind)
		if err != nil {
			return ledger.Reason(err)
		}
		return fmt.Sprintf("✅ Bought %s for %d $WE", kindLabel(kind), price)
	case "/add":
		kind, ok := parseKind(args)
		if !ok {
			return "Usage: /add hotel|clicker"
		}
		item, err := s.Engine.AddToCart(ctx, kind)
		if err != nil {
			return ledger.Reason(err)
		}
		return fmt.Sprintf("🛒 Added %s at %d $WE (<code>%s</code>)", kindLabel(kind), item.UnitBasePrice, shortID(item.ID))
	case "/cart":
		items, totals, err := s.Engine.Cart()
		if err != nil {
			return ledger.Reason(err)
		}
		return notifier.FormatCart(items, totals)
	case "/nights", "/people", "/qty":
		return s.stepCart(name, args)
	case "/remove":
		if len(args) != 1 {
			return "Usage: /remove ID"
		}
		id, err := s.resolveCartID(args[0])
		if err == nil {
			err = s.Engine.RemoveFromCart(id)
		}
		if err != nil {
			return ledger.Reason(err)
		}
		return "🗑 Removed."
	case "/checkout":
		totals, err := s.Engine.Checkout(ctx)
		if err != nil {
			return ledger.Reason(err)
		}
		return fmt.Sprintf("✅ Paid %d $WE (subtotal %d, tax %d)", totals.Total, totals.Subtotal, totals.Tax)
	case "/redeem":
		if len(args) != 1 {
			return "Usage: /redeem CODE"
		}
		if err := s.Engine.Redeem(ctx, args[0]); err != nil {
			return ledger.Reason(err)
		}
		return "🏨 Voucher redeemed. Enjoy your stay."
	case "/activate":
		sess, err := s.Engine.ActivateAutoClicker(ctx)
		if err != nil {
			return ledger.Reason(err)
		}
		return fmt.Sprintf("🤖 Auto-clicker running until %s", sess.EndsAt.Format("15:04:05"))
	case "/cashout":
		if len(args) != 1 {
			s.Engine.EditCashoutCode()
			return "Usage: /cashout CODE"
		}
		if err := s.Engine.SubmitCashout(ctx, args[0]); err != nil {
			return ledger.Reason(err)
		}
		return "💸 Transfer in progress..."
	case "/notify":
		if len(args) != 1 {
			return "Usage: /notify on|off"
		}
		switch strings.ToLower(args[0]) {
		case "on":
			s.Engine.SetNotifications(true)
			return "🔔 Market alerts on."
		case "off":
			s.Engine.SetNotifications(false)
			return "🔕 Market alerts off."
		}
		return "Usage: /notify on|off"
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) stepCart(name string, args []string) string {
	if len(args) != 2 {
		return fmt.Sprintf("Usage: %s ID N", name)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Sprintf("Usage: %s ID N", name)
	}
	id, err := s.resolveCartID(args[0])
	if err != nil {
		return ledger.Reason(err)
	}

	var item model.CartItem
	switch name {
	case "/nights":
		item, err = s.Engine.SetNights(id, n)
	case "/people":
		item, err = s.Engine.SetPeople(id, n)
	default:
		item, err = s.Engine.SetQuantity(id, n)
	}
	if err != nil {
		return ledger.Reason(err)
	}
	if item.Kind == model.ItemHotel {
		return fmt.Sprintf("🏨 %d night(s) × %d person(s)", item.Nights, item.People)
	}
	return fmt.Sprintf("🤖 ×%d", item.Quantity)
}

// resolveCartID maps the short ID shown in the cart to a unique line.
func (s *Scheduler) resolveCartID(prefix string) (string, error) {
	items, _, _ := s.Engine.Cart()
	match := ""
	for _, it := range items {
		if strings.HasPrefix(it.ID, prefix) {
			if match != "" {
				return "", ledger.ErrCartItemNotFound
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", ledger.ErrCartItemNotFound
	}
	return match, nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func parseKind(args []string) (model.ItemKind, bool) {
	if len(args) != 1 {
		return "", false
	}
	switch strings.ToLower(args[0]) {
	case "hotel":
		return model.ItemHotel, true
	case "clicker", "autoclicker", "auto":
		return model.ItemAutoClicker, true
	}
	return "", false
}

func kindLabel(kind model.ItemKind) string {
	if kind == model.ItemHotel {
		return "Hotel Deluxe"
	}
	return "Auto-clicker"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
