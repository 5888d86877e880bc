package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	redisclient "github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
)

// Counters outlive their day so late releases still find them.
const capacityKeyTTL = 48 * time.Hour

var reserveScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= tonumber(ARGV[1]) then
	return 0
end
redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return 1
`)

var releaseScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used <= 0 then
	return 0
end
return redis.call("DECR", KEYS[1])
`)

// RedisCapacityCounter keeps one integer key per geofence and day
type RedisCapacityCounter struct {
	client *redisclient.Client
}

var _ providers.CapacityCounter = (*RedisCapacityCounter)(nil)

// NewRedisCapacityCounter creates a Redis-backed capacity counter
func NewRedisCapacityCounter(client *redisclient.Client) *RedisCapacityCounter {
	return &RedisCapacityCounter{client: client}
}

func capacityKey(geofenceID, day string) string {
	return fmt.Sprintf("capacity:%s:%s", geofenceID, day)
}

// Used returns the slots taken for the day
func (c *RedisCapacityCounter) Used(ctx context.Context, geofenceID, day string) (int, error) {
	used, err := c.client.Client().Get(ctx, capacityKey(geofenceID, day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read capacity counter: %w", err)
	}
	return used, nil
}

// TryReserve takes one slot inside a Lua script so check and increment are atomic
func (c *RedisCapacityCounter) TryReserve(ctx context.Context, geofenceID, day string, capacity int) (bool, error) {
	if capacity <= 0 {
		return false, nil
	}
	ok, err := reserveScript.Run(ctx, c.client.Client(),
		[]string{capacityKey(geofenceID, day)},
		capacity, int(capacityKeyTTL.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to reserve capacity: %w", err)
	}
	return ok == 1, nil
}

// Release returns one slot without going below zero
func (c *RedisCapacityCounter) Release(ctx context.Context, geofenceID, day string) error {
	if err := releaseScript.Run(ctx, c.client.Client(), []string{capacityKey(geofenceID, day)}).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	return nil
}
