package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
)

// CatalogInvalidator drops cached catalog data for a service type
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, serviceType entities.ServiceType) error
}

// CatalogInvalidationService clears cached snapshots when authoring events arrive
type CatalogInvalidationService struct {
	catalog  CatalogInvalidator
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCatalogInvalidationService creates a new catalog invalidation service
func NewCatalogInvalidationService(catalog CatalogInvalidator, eventBus providers.EventBus) *CatalogInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CatalogInvalidationService{
		catalog:  catalog,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for catalog events
func (s *CatalogInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelCatalogUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to catalog updates: %w", err)
	}

	s.done = make(chan struct{})
	go s.processEvents(eventChan)
	log.Info().Msg("Catalog invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CatalogInvalidationService) Stop() {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
	log.Info().Msg("Catalog invalidation service stopped")
}

func (s *CatalogInvalidationService) processEvents(eventChan <-chan *entities.CatalogEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CatalogInvalidationService) handleEvent(event *entities.CatalogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.catalog.Invalidate(ctx, event.ServiceType); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Str("service_type", string(event.ServiceType)).Msg("Failed to invalidate catalog cache")
		return
	}
	log.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Str("record_id", event.RecordID).
		Msg("Invalidated catalog cache")
}
