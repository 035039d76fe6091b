package store

import (
	"context"
	"fmt"
	"time"

	"newsforge/internal/config"
)

// Store is the TTL key/value layer backing fingerprint persistence and
// LLM result caching. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	ClearExpired(ctx context.Context) error
	Close() error
}

// New builds the store named by cfg.Type.
func New(cfg config.StoreConfig) (Store, error) {
	ttl := config.Duration(cfg.TTL, 24*time.Hour)

	switch cfg.Type {
	case "memory", "":
		return NewMemory(ttl), nil
	case "redis":
		return NewRedis(cfg.Addr), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
