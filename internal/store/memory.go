package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the embedded in-process backend.
type Memory struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
}

// NewMemory creates a memory store. go-cache runs its own janitor, so
// ClearExpired is a cheap explicit sweep on top of it.
func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour
	}
	return &Memory{
		cache:      gocache.New(defaultTTL, defaultTTL/2),
		defaultTTL: defaultTTL,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) ClearExpired(_ context.Context) error {
	m.cache.DeleteExpired()
	return nil
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
