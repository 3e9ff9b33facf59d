package market

import (
	"time"

	"WeEarn/internal/model"
)

// Collector assembles the market snapshot for a block.
type Collector struct {
	Source   Source
	Interval time.Duration
}

// NewCollector creates a Collector. A nil source means BlockSource.
func NewCollector(src Source, interval time.Duration) *Collector {
	if src == nil {
		src = BlockSource{}
	}
	return &Collector{Source: src, Interval: interval}
}

// CollectBlock derives the snapshot of a given block.
func (c *Collector) CollectBlock(block int64) model.MarketSnapshot {
	draw := Draw(block)
	tier := Resolve(draw)
	return model.MarketSnapshot{
		Block:    block,
		Draw:     draw,
		Tier:     tier,
		Rate:     tier.RateMultiplier,
		Prices:   PriceBlock(c.Source, block),
		StartsAt: BlockStart(block, c.Interval),
		EndsAt:   BlockStart(block+1, c.Interval),
	}
}
