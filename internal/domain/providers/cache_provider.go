package providers

import (
	"context"
	"time"
)

// CacheProvider stores encoded values with a bounded lifetime. A miss is
// reported through found, not as an error.
type CacheProvider interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
