package market

import (
	"math"

	"WeEarn/internal/model"
)

// Tier bin lower bounds. Draws in [0,BullMin) split at StableMin.
const (
	StableMin = 0.20
	BullMin   = 0.70
	MoonMin   = 0.90
)

var (
	Bear   = model.MarketTier{Name: model.TierBear, Label: "Bear Market", Tone: model.ToneRed, RateMultiplier: 0.1}
	Stable = model.MarketTier{Name: model.TierStable, Label: "Stable", Tone: model.ToneYellow, RateMultiplier: 0.5}
	Bull   = model.MarketTier{Name: model.TierBull, Label: "Bull Run", Tone: model.ToneGreen, RateMultiplier: 1.0}
	Moon   = model.MarketTier{Name: model.TierMoon, Label: "MOON 🚀", Tone: model.TonePurple, RateMultiplier: 2.0}
)

// Tiers is ordered from the highest bin down; the first MinDraw <= draw wins.
var Tiers = []struct {
	MinDraw float64
	Tier    model.MarketTier
}{
	{MoonMin, Moon},
	{BullMin, Bull},
	{StableMin, Stable},
	{0, Bear},
}

// Resolve maps a draw to its tier. Inputs outside [0,1) are clamped.
func Resolve(draw float64) model.MarketTier {
	switch {
	case math.IsNaN(draw) || draw < 0:
		draw = 0
	case draw >= 1:
		draw = math.Nextafter(1, 0)
	}
	for _, t := range Tiers {
		if draw >= t.MinDraw {
			return t.Tier
		}
	}
	return Bear
}

// TierFor is Resolve(Draw(block)).
func TierFor(block int64) model.MarketTier {
	return Resolve(Draw(block))
}
