package notifier

import (
	"fmt"
	"strings"

	"WeEarn/internal/calculator"
	"WeEarn/internal/market"
	"WeEarn/internal/model"
)

var toneIcon = map[model.Tone]string{
	model.ToneRed:    "📉",
	model.ToneYellow: "➖",
	model.ToneGreen:  "📈",
	model.TonePurple: "⚡",
}

// FormatMarketAlert formats the Bull/Moon alert sent once per block.
func FormatMarketAlert(snap model.MarketSnapshot) string {
	return fmt.Sprintf("%s <b>%s</b>\n\n1 click = %s $WE until %s",
		toneIcon[snap.Tier.Tone], snap.Tier.Label, formatRate(snap.Rate), snap.EndsAt.Format("15:04"))
}

// FormatMarket formats the current market card.
func FormatMarket(snap model.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString("💹 <b>Current market</b>\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n", toneIcon[snap.Tier.Tone], snap.Tier.Label))
	b.WriteString(fmt.Sprintf("1 click = %s $WE\n", formatRate(snap.Rate)))
	b.WriteString(fmt.Sprintf("⏱ %s\n", market.FormatRemaining(snap.Remaining)))
	return b.String()
}

// FormatWallet formats balance, clicks and inventory.
func FormatWallet(w model.Wallet) string {
	var b strings.Builder
	b.WriteString("👛 <b>Wallet</b>\n\n")
	b.WriteString(fmt.Sprintf("Balance: %s $WE\n", w.BalanceText))
	b.WriteString(fmt.Sprintf("Total clicks: %d\n", w.TotalClicks))
	b.WriteString(fmt.Sprintf("Hotel vouchers: %d\n", w.Inventory.Vouchers))
	b.WriteString(fmt.Sprintf("Auto-clicker charges: %d\n", w.Inventory.AutoClickers))
	if w.Session != nil {
		b.WriteString(fmt.Sprintf("Auto-clicker running until %s\n", w.Session.EndsAt.Format("15:04:05")))
	}
	b.WriteString(fmt.Sprintf("Alerts: %s\n", onOff(w.NotificationsEnabled)))
	return b.String()
}

// FormatStore formats the block's catalog.
func FormatStore(snap model.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString("🛒 <b>Store</b>\n\n")
	b.WriteString(fmt.Sprintf("🏨 Hotel Deluxe: %d $WE / night\n", snap.Prices.HotelDeluxe))
	b.WriteString(fmt.Sprintf("🤖 Auto-clicker (5 min): %d $WE\n", snap.Prices.AutoClicker))
	b.WriteString(fmt.Sprintf("\nPrices change in %s", market.FormatRemaining(snap.Remaining)))
	return b.String()
}

// FormatCart formats the cart lines and totals.
func FormatCart(items []model.CartItem, totals model.CartTotals) string {
	if len(items) == 0 {
		return "🛒 Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("🛒 <b>Cart</b>\n\n")
	for _, it := range items {
		line, err := calculator.LinePrice(it)
		if err != nil {
			line = 0
		}
		short := it.ID
		if len(short) > 8 {
			short = short[:8]
		}
		switch it.Kind {
		case model.ItemHotel:
			b.WriteString(fmt.Sprintf("<code>%s</code> 🏨 %d night(s) × %d person(s): %d\n", short, it.Nights, it.People, line))
		default:
			b.WriteString(fmt.Sprintf("<code>%s</code> 🤖 ×%d: %d\n", short, it.Quantity, line))
		}
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("Subtotal: %d\nTax (%d%%): %d\n<b>Total: %d $WE</b>", totals.Subtotal, calculator.TaxPercent, totals.Tax, totals.Total))
	return b.String()
}

// FormatHistory renders the rate history as a compact sparkline.
func FormatHistory(rates []float64) string {
	if len(rates) == 0 {
		return "No market history yet."
	}
	bars := map[float64]string{
		market.Bear.RateMultiplier:   "▁",
		market.Stable.RateMultiplier: "▃",
		market.Bull.RateMultiplier:   "▅",
		market.Moon.RateMultiplier:   "█",
	}
	var b strings.Builder
	for _, r := range rates {
		if s, ok := bars[r]; ok {
			b.WriteString(s)
		} else {
			b.WriteString("·")
		}
	}
	return fmt.Sprintf("📊 <b>Last %d blocks</b>\n\n%s\nlatest: %s $WE", len(rates), b.String(), formatRate(rates[len(rates)-1]))
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return strings.Join([]string{
		"Commands:",
		"• /click",
		"• /status",
		"• /market",
		"• /history",
		"• /store",
		"• /buy hotel|clicker",
		"• /add hotel|clicker",
		"• /cart",
		"• /nights ID N",
		"• /people ID N",
		"• /qty ID N",
		"• /remove ID",
		"• /checkout",
		"• /redeem CODE",
		"• /activate",
		"• /cashout CODE",
		"• /notify on|off",
	}, "\n")
}

func formatRate(r float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", r), "0"), ".")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
