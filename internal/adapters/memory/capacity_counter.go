package memory

import (
	"context"
	"sync"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
)

type capacityKey struct {
	geofenceID string
	day        string
}

// CapacityCounter counts daily slots under a mutex
type CapacityCounter struct {
	mu   sync.Mutex
	used map[capacityKey]int
}

var _ providers.CapacityCounter = (*CapacityCounter)(nil)

// NewCapacityCounter creates an empty counter
func NewCapacityCounter() *CapacityCounter {
	return &CapacityCounter{used: make(map[capacityKey]int)}
}

func (c *CapacityCounter) Used(ctx context.Context, geofenceID, day string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used[capacityKey{geofenceID, day}], nil
}

func (c *CapacityCounter) TryReserve(ctx context.Context, geofenceID, day string, capacity int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := capacityKey{geofenceID, day}
	if c.used[key] >= capacity {
		return false, nil
	}
	c.used[key]++
	return true, nil
}

func (c *CapacityCounter) Release(ctx context.Context, geofenceID, day string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := capacityKey{geofenceID, day}
	if c.used[key] > 0 {
		c.used[key]--
	}
	return nil
}
