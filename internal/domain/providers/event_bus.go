package providers

import (
	"context"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error

	// Subscribe delivers events on a channel until ctx ends or the bus closes
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelCatalogUpdates carries every authoring change to the catalog
const EventChannelCatalogUpdates = "catalog:updates"
