package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With(slog.String("component", "recorder"))}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", slog.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS block_history (
			block         INTEGER PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			draw          REAL,
			tier          TEXT,
			rate          REAL,
			hotel_price   INTEGER,
			clicker_price INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			event_type     TEXT,
			balance_before REAL,
			balance_after  REAL,
			amount         REAL,
			note           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_ts ON ledger_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordBlock stores a block once; a block seen again after restart is ignored.
func (r *SQLiteRecorder) RecordBlock(evt *BlockEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR IGNORE INTO block_history
		(block, timestamp, draw, tier, rate, hotel_price, clicker_price)
		VALUES (?,?,?,?,?,?,?)`,
		evt.Block, time.Now().Unix(), evt.Draw, evt.Tier, evt.Rate,
		evt.HotelPrice, evt.ClickerPrice,
	)
	return err
}

func (r *SQLiteRecorder) RecordLedgerEvent(evt *LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ledger_events
		(timestamp, event_type, balance_before, balance_after, amount, note)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.EventType,
		evt.BalanceBefore, evt.BalanceAfter,
		evt.Amount, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecentBlocks(limit int) ([]BlockEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT block, draw, tier, rate, hotel_price, clicker_price
		FROM block_history ORDER BY block DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []BlockEvent
	for rows.Next() {
		var b BlockEvent
		if err := rows.Scan(&b.Block, &b.Draw, &b.Tier, &b.Rate, &b.HotelPrice, &b.ClickerPrice); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
