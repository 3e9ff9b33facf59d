package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore keeps keys in a kv_state table.
type SQLStore struct {
	dialect Dialect
	db      *sql.DB
}

// OpenSQL opens a SQLite file or Postgres DSN and creates the table.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var driverName string
	switch dialect {
	case DialectSQLite:
		driverName = "sqlite"
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store: path is required")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	case DialectPostgres:
		driverName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres store: dsn is required")
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	s := &SQLStore{dialect: dialect, db: db}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv_state (
		state_key  TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv_state: %w", err)
	}
	return s, nil
}

func (s *SQLStore) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (s *SQLStore) Name() string { return string(s.dialect) }

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_state WHERE state_key = "+s.bind(1), key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLStore) SetMany(ctx context.Context, kv map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO kv_state (state_key, value, updated_at) VALUES (%s, %s, %s)
		ON CONFLICT (state_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.bind(1), s.bind(2), s.bind(3))
	now := time.Now().UnixMilli()
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, q, k, v, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
