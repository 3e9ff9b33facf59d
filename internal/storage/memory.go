package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory; nothing survives a restart.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Name() string { return BackendMemory }

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (m *MemoryStore) SetMany(_ context.Context, kv map[string]string) error {
	for k, v := range kv {
		m.c.Set(k, v, cache.NoExpiration)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
