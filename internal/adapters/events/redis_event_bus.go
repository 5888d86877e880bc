package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	redisclient "github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 100

var errBusClosed = errors.New("event bus closed")

// RedisEventBus carries catalog events over Redis Pub/Sub so every API
// replica drops its cached snapshot when any replica authors a change.
// Each Subscribe call owns one Redis subscription.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates a Redis-backed event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		client: client,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// Publish sends the event as JSON on channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("event_type", string(event.EventType)).Msg("Published catalog event")
	return nil
}

// Subscribe returns events published on channel until ctx ends or the bus
// is closed. The subscription is confirmed by Redis before it returns.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	pubsub := b.client.Client().Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, errBusClosed
	}
	b.subs[pubsub] = struct{}{}
	b.mu.Unlock()

	out := make(chan *entities.CatalogEvent, subscriberBuffer)
	go b.forward(ctx, channel, pubsub, out)
	log.Info().Str("channel", channel).Msg("Subscribed to channel")
	return out, nil
}

func (b *RedisEventBus) forward(ctx context.Context, channel string, pubsub *redis.PubSub, out chan<- *entities.CatalogEvent) {
	defer close(out)
	defer b.release(pubsub)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event entities.CatalogEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal catalog event")
				continue
			}
			select {
			case out <- &event:
			default:
				log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
			}
		}
	}
}

func (b *RedisEventBus) release(pubsub *redis.PubSub) {
	b.mu.Lock()
	_, owned := b.subs[pubsub]
	delete(b.subs, pubsub)
	b.mu.Unlock()
	if owned {
		_ = pubsub.Close()
	}
}

// Close ends every subscription; their channels are closed once drained
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := make([]*redis.PubSub, 0, len(b.subs))
	for pubsub := range b.subs {
		subs = append(subs, pubsub)
	}
	b.subs = make(map[*redis.PubSub]struct{})
	b.mu.Unlock()

	var errs []error
	for _, pubsub := range subs {
		if err := pubsub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close event bus: %w", err)
	}
	log.Info().Msg("Event bus closed")
	return nil
}
