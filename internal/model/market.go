package model

import "time"

// ItemKind names a store catalog entry.
type ItemKind string

const (
	ItemHotel       ItemKind = "HOTEL"
	ItemAutoClicker ItemKind = "AUTOCLICKER"
)

// StorePrices holds the integer catalog prices for one block.
type StorePrices struct {
	HotelDeluxe int
	AutoClicker int
}

// PriceOf returns the block price for the given catalog item.
func (p StorePrices) PriceOf(kind ItemKind) (int, bool) {
	switch kind {
	case ItemHotel:
		return p.HotelDeluxe, true
	case ItemAutoClicker:
		return p.AutoClicker, true
	default:
		return 0, false
	}
}

// MarketSnapshot is everything derived from a single time block.
type MarketSnapshot struct {
	Block     int64
	Draw      float64
	Tier      MarketTier
	Rate      float64
	Prices    StorePrices
	StartsAt  time.Time
	EndsAt    time.Time
	Remaining time.Duration
}
