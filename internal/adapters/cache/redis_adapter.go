package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	redisclient "github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
)

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client *redisclient.Client
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Get retrieves a value; found is false when the key is absent or expired
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return result, true, nil
}

// Set stores a value. Redis rejects sub-millisecond expirations, so ttl is
// raised to one second.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := a.client.Client().Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// Delete removes a value
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from cache: %w", key, err)
	}
	return nil
}
