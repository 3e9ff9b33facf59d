// Package storage persists the session as opaque string key/values.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Store is a string key/value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, kv map[string]string) error
	Name() string
	Close() error
}

// Backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	FilePath    string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
	RedisKey    string
}

// Open creates the configured store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.FilePath)
	case BackendSQLite:
		return OpenSQL(ctx, DialectSQLite, opts.SQLitePath)
	case BackendPostgres:
		return OpenSQL(ctx, DialectPostgres, opts.PostgresDSN)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.RedisKey)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", opts.Backend)
	}
}

const openTimeout = 10 * time.Second
