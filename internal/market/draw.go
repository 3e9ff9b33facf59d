// Package market derives the deterministic per-block market: the draw, the
// tier it maps to, store prices and the clock that detects block changes.
package market

import "math"

const drawScale = 10000

// Draw maps a block index to a reproducible value in [0,1).
// It takes the fractional part of sin(block) scaled by a large constant, so
// every client computes the same value for the same block without talking to
// anyone.
func Draw(block int64) float64 {
	x := math.Sin(float64(block)) * drawScale
	r := x - math.Floor(x)
	// x slightly below an integer can round up to exactly 1.
	if r >= 1 || r < 0 || math.IsNaN(r) {
		return 0
	}
	return r
}
