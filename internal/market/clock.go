package market

import (
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the market block length.
const DefaultInterval = 5 * time.Minute

// BlockAt returns floor(now_ms / interval_ms).
func BlockAt(now time.Time, interval time.Duration) int64 {
	ms := now.UnixMilli()
	step := interval.Milliseconds()
	b := ms / step
	if ms%step != 0 && ms < 0 {
		b--
	}
	return b
}

// BlockStart returns the wall time at which block begins.
func BlockStart(block int64, interval time.Duration) time.Time {
	return time.UnixMilli(block * interval.Milliseconds())
}

// Tick is the clock reading at one observation.
type Tick struct {
	Block     int64
	Previous  int64
	Remaining time.Duration
	// Changed is true on the first observation and on every block transition.
	Changed bool
}

// Clock tracks the last observed block. The block is always recomputed from
// wall time, so delayed or skipped ticks never replay or miss a transition.
type Clock struct {
	mu       sync.Mutex
	interval time.Duration
	last     int64
	seen     bool
}

// NewClock creates a clock with the given block length. Zero selects
// DefaultInterval; anything else is raised to at least 1ms.
func NewClock(interval time.Duration) *Clock {
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return &Clock{interval: interval}
}

// Interval returns the block length.
func (c *Clock) Interval() time.Duration { return c.interval }

// Observe derives the block at now and reports whether it differs from the
// previously observed one. Concurrent callers see each transition once.
func (c *Clock) Observe(now time.Time) Tick {
	block := BlockAt(now, c.interval)
	next := BlockStart(block+1, c.interval)

	c.mu.Lock()
	defer c.mu.Unlock()

	t := Tick{
		Block:     block,
		Previous:  c.last,
		Remaining: next.Sub(now),
		Changed:   !c.seen || block != c.last,
	}
	c.last = block
	c.seen = true
	return t
}

// FormatRemaining renders a countdown as m:ss.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
