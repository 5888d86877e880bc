package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/config"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Redis is optional for most deployments, so give up quickly
	policy := retry.Policy{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       time.Second,
		Multiplier:     2,
		AttemptTimeout: 2 * time.Second,
	}
	err := retry.Do(context.Background(), policy, "Redis",
		func(ctx context.Context) error { return client.Ping(ctx).Err() },
		func(attempt int, err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Redis connection attempt failed")
		},
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(client *redis.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
