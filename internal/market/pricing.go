package market

import (
	"math"
	"math/rand"

	"github.com/samber/lo"

	"WeEarn/internal/model"
)

const (
	HotelMin          = 250
	HotelSpread       = 250
	AutoClickerMin    = 500
	AutoClickerSpread = 1500
)

// Stream separates the uniforms used by each catalog item.
type Stream int

const (
	StreamHotel Stream = iota
	StreamAutoClicker
)

// Source supplies uniforms in [0,1) for pricing a block.
type Source interface {
	Uniforms(block int64, stream Stream, n int) []float64
	Name() string
}

// Entropy modes accepted by NewSource.
const (
	EntropyBlock       = "block"
	EntropyIndependent = "independent"
)

// NewSource returns the pricing source for an entropy mode.
func NewSource(mode string) (Source, bool) {
	switch mode {
	case EntropyBlock, "":
		return BlockSource{}, true
	case EntropyIndependent:
		return RandomSource{}, true
	default:
		return nil, false
	}
}

// subDrawStride leaves room for one market draw plus the pricing sub-draws
// of every stream inside a block's seed range.
const subDrawStride = 16

// BlockSource derives every uniform from the block itself, so store prices
// agree across devices exactly like the market tier does.
type BlockSource struct{}

func (BlockSource) Name() string { return EntropyBlock }

func (BlockSource) Uniforms(block int64, stream Stream, n int) []float64 {
	out := make([]float64, n)
	base := block*subDrawStride + 1 + int64(stream)*4
	for i := range out {
		out[i] = Draw(base + int64(i))
	}
	return out
}

// RandomSource uses process-local randomness. Prices then differ per device
// and per restart; kept for the legacy independent pricing mode.
type RandomSource struct{}

func (RandomSource) Name() string { return EntropyIndependent }

func (RandomSource) Uniforms(_ int64, _ Stream, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rand.Float64()
	}
	return out
}

// FixedSource replays fixed uniforms per stream.
type FixedSource map[Stream][]float64

func (FixedSource) Name() string { return "fixed" }

func (f FixedSource) Uniforms(_ int64, stream Stream, n int) []float64 {
	out := make([]float64, n)
	copy(out, f[stream])
	return out
}

// PriceBlock computes catalog prices for a block. The hotel price is skewed
// upward with the max of two uniforms; the auto-clicker price is centred with
// the mean of three.
func PriceBlock(src Source, block int64) model.StorePrices {
	hu := src.Uniforms(block, StreamHotel, 2)
	cu := src.Uniforms(block, StreamAutoClicker, 3)
	return model.StorePrices{
		HotelDeluxe: HotelMin + int(math.Floor(HotelSpread*lo.Max(hu))),
		AutoClicker: AutoClickerMin + int(math.Floor(AutoClickerSpread*lo.Mean(cu))),
	}
}
