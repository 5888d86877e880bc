package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
)

// EventBus fans events out to in-process subscribers
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.CatalogEvent]struct{}
}

var _ providers.EventBus = (*EventBus)(nil)

// NewEventBus creates an in-process event bus
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string]map[chan *entities.CatalogEvent]struct{})}
}

func (b *EventBus) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.CatalogEvent]struct{})
	}
	eventChan := make(chan *entities.CatalogEvent, 100)
	b.subscribers[channel][eventChan] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()
	return eventChan, nil
}

func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	return nil
}

func (b *EventBus) remove(channel string, eventChan chan *entities.CatalogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
}
