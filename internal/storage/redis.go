package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "weearn:state"

// RedisStore keeps all keys as fields of one Redis hash.
type RedisStore struct {
	rdb  *redis.Client
	hash string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr string, db int, hash string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis store: addr is required")
	}
	if hash == "" {
		hash = defaultRedisKey
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{rdb: rdb, hash: hash}, nil
}

func (r *RedisStore) Name() string { return BackendRedis }

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) SetMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(kv))
	for k, v := range kv {
		fields[k] = v
	}
	if err := r.rdb.HSet(ctx, r.hash, fields).Err(); err != nil {
		return fmt.Errorf("redis: save: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
