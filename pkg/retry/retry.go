// Package retry retries connection attempts with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how often and how long to retry
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// AttemptTimeout bounds a single call; 0 leaves it to the caller context
	AttemptTimeout time.Duration
	// Deadline bounds all attempts together; 0 means no overall limit
	Deadline time.Duration
}

// DefaultPolicy suits startup dependencies: up to a minute of retries
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    10,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 5 * time.Second,
		Deadline:       time.Minute,
	}
}

// Backoff returns the wait after the given failed attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Notify is called after each failed attempt that will be retried
type Notify func(attempt int, err error, next time.Duration)

// Do calls fn until it succeeds, attempts run out or ctx ends. name
// prefixes the returned error.
func Do(ctx context.Context, p Policy, name string, fn func(ctx context.Context) error, notify Notify) error {
	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborted(name, attempt-1, err, lastErr)
		}

		lastErr = call(ctx, p.AttemptTimeout, fn)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		next := p.Backoff(attempt)
		if notify != nil {
			notify(attempt, lastErr, next)
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return aborted(name, attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempts, lastErr)
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func aborted(name string, attempts int, ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%s: retry aborted: %w", name, ctxErr)
	}
	return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", name, attempts, ctxErr, lastErr)
}
