//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/cache"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/config"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	port := 6379
	if v, err := strconv.Atoi(os.Getenv("TEST_REDIS_PORT")); err == nil {
		port = v
	}
	client, err := redis.NewClient(&config.RedisConfig{
		Host:     os.Getenv("TEST_REDIS_HOST"),
		Port:     port,
		Password: os.Getenv("TEST_REDIS_PASSWORD"),
	})
	require.NoError(t, err, "Failed to create redis client")
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCapacityCounterIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	counter := cache.NewRedisCapacityCounter(client)
	ctx := context.Background()

	geofenceID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	day := "2026-03-02"
	t.Cleanup(func() {
		client.Client().Del(context.Background(), "capacity:"+geofenceID+":"+day)
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := counter.TryReserve(ctx, geofenceID, day, 5)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, granted)

	used, err := counter.Used(ctx, geofenceID, day)
	require.NoError(t, err)
	assert.Equal(t, 5, used)

	for i := 0; i < 7; i++ {
		require.NoError(t, counter.Release(ctx, geofenceID, day))
	}
	used, err = counter.Used(ctx, geofenceID, day)
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestRedisAdapterIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	adapter := cache.NewRedisAdapter(client)
	ctx := context.Background()

	key := fmt.Sprintf("it:snapshot:%d", time.Now().UnixNano())
	require.NoError(t, adapter.Set(ctx, key, []byte(`{"version":"v1"}`), 30*time.Second))

	data, found, err := adapter.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"version":"v1"}`, string(data))

	require.NoError(t, adapter.Delete(ctx, key))
	_, found, err = adapter.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}
