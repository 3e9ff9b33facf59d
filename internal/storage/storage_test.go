package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleSession() Session {
	return Session{
		Balance:              decimal.RequireFromString("123.45"),
		TotalClicks:          987,
		NotificationsEnabled: true,
		Vouchers:             6,
		AutoClickers:         2,
		AutoClickerEnd:       time.UnixMilli(1_700_000_300_000),
	}
}

func requireRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty := LoadSession(ctx, s, discard)
	require.True(t, empty.Balance.IsZero())
	require.Zero(t, empty.TotalClicks)
	require.False(t, empty.NotificationsEnabled)
	require.True(t, empty.AutoClickerEnd.IsZero())

	want := sampleSession()
	require.NoError(t, SaveSession(ctx, s, want))
	got := LoadSession(ctx, s, discard)
	require.True(t, want.Balance.Equal(got.Balance), "balance %s", got.Balance)
	require.Equal(t, want.TotalClicks, got.TotalClicks)
	require.Equal(t, want.NotificationsEnabled, got.NotificationsEnabled)
	require.Equal(t, want.Vouchers, got.Vouchers)
	require.Equal(t, want.AutoClickers, got.AutoClickers)
	require.True(t, want.AutoClickerEnd.Equal(got.AutoClickerEnd))

	v, ok, err := s.Get(ctx, KeyBalance)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "123.45", v)
}

func TestMemoryStore(t *testing.T) {
	requireRoundTrip(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)
	requireRoundTrip(t, fs)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got := LoadSession(context.Background(), reopened, discard)
	require.Equal(t, int64(987), got.TotalClicks)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	fs, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok, err := fs.Get(context.Background(), KeyBalance)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()
	requireRoundTrip(t, s)

	// Upsert overwrites.
	require.NoError(t, s.SetMany(context.Background(), map[string]string{KeyTotalClicks: "1"}))
	require.Equal(t, int64(1), LoadSession(context.Background(), s, discard).TotalClicks)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	s, err := OpenSQL(context.Background(), DialectPostgres, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, SaveSession(context.Background(), s, sampleSession()))
	require.Equal(t, 6, LoadSession(context.Background(), s, discard).Vouchers)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, 0, "weearn:test:"+t.Name()+time.Now().Format("150405.000"))
	require.NoError(t, err)
	defer s.Close()
	requireRoundTrip(t, s)
}

func TestLoadSession_CorruptValuesDegrade(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetMany(ctx, map[string]string{
		KeyBalance:              "abc",
		KeyTotalClicks:          "-4",
		KeyNotificationsEnabled: "maybe",
		KeyVoucherCount:         "3.5",
		KeyAutoClickerCount:     "2",
		KeyAutoClickerEnd:       "soon",
	}))
	got := LoadSession(ctx, s, discard)
	require.True(t, got.Balance.IsZero())
	require.Zero(t, got.TotalClicks)
	require.False(t, got.NotificationsEnabled)
	require.Zero(t, got.Vouchers)
	require.Equal(t, 2, got.AutoClickers)
	require.True(t, got.AutoClickerEnd.IsZero())

	require.NoError(t, s.SetMany(ctx, map[string]string{KeyBalance: "-10"}))
	require.True(t, LoadSession(ctx, s, discard).Balance.IsZero())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, BackendMemory, s.Name())

	s, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.Equal(t, "sqlite", s.Name())
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"})
	require.ErrorContains(t, err, "unsupported storage backend")
	_, err = Open(ctx, Options{Backend: BackendPostgres})
	require.Error(t, err)
}
