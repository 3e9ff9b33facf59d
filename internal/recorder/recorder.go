package recorder

// BlockEvent captures the market derived for one block.
type BlockEvent struct {
	Block        int64
	Draw         float64
	Tier         string
	Rate         float64
	HotelPrice   int
	ClickerPrice int
}

// LedgerEvent records a balance or inventory change.
type LedgerEvent struct {
	EventType     string // "PURCHASE", "CHECKOUT", "REDEEM", "ACTIVATE", "CASHOUT", "SESSION_END"
	BalanceBefore float64
	BalanceAfter  float64
	Amount        float64
	Note          string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordBlock(evt *BlockEvent) error
	RecordLedgerEvent(evt *LedgerEvent) error
	// RecentBlocks returns up to limit blocks, oldest first.
	RecentBlocks(limit int) ([]BlockEvent, error)
	Close() error
}
