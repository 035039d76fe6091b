package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared backend for multi-instance deployments.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// ClearExpired is a no-op: redis evicts expired keys itself.
func (r *Redis) ClearExpired(context.Context) error {
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
