package market

import "slices"

// DefaultHistorySize is the number of rates kept for charting.
const DefaultHistorySize = 30

// RateHistory is a bounded FIFO of past rates. Not safe for concurrent use.
type RateHistory struct {
	size  int
	rates []float64
}

// NewRateHistory creates a history holding at most size entries.
func NewRateHistory(size int) *RateHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &RateHistory{size: size, rates: make([]float64, 0, size)}
}

// Push appends a rate, evicting the oldest when over capacity.
func (h *RateHistory) Push(rate float64) {
	h.rates = append(h.rates, rate)
	if len(h.rates) > h.size {
		h.rates = slices.Clone(h.rates[len(h.rates)-h.size:])
	}
}

// Snapshot returns the rates oldest first.
func (h *RateHistory) Snapshot() []float64 {
	return slices.Clone(h.rates)
}

// Len returns the number of stored rates.
func (h *RateHistory) Len() int { return len(h.rates) }
