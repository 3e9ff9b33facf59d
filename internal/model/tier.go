package model

// TierName identifies one of the four market regimes.
type TierName string

const (
	TierBear   TierName = "BEAR"
	TierStable TierName = "STABLE"
	TierBull   TierName = "BULL"
	TierMoon   TierName = "MOON"
)

// Tone is a display hint for the rendering layer.
type Tone string

const (
	ToneRed    Tone = "red"
	ToneYellow Tone = "yellow"
	ToneGreen  Tone = "green"
	TonePurple Tone = "purple"
)

// MarketTier maps a draw range to a click-value multiplier.
type MarketTier struct {
	Name           TierName
	Label          string
	Tone           Tone
	RateMultiplier float64
}

// Bullish reports whether the tier should trigger a market alert.
func (t MarketTier) Bullish() bool {
	return t.Name == TierBull || t.Name == TierMoon
}
