package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

// AuthoringService validates and stores geofences and base locations and
// announces each change on the event bus
type AuthoringService struct {
	geofences     repositories.GeofenceRepository
	baseLocations repositories.BaseLocationRepository
	eventBus      providers.EventBus
	now           func() time.Time
}

// NewAuthoringService creates a new authoring service; eventBus may be nil
func NewAuthoringService(
	geofences repositories.GeofenceRepository,
	baseLocations repositories.BaseLocationRepository,
	eventBus providers.EventBus,
) *AuthoringService {
	return &AuthoringService{
		geofences:     geofences,
		baseLocations: baseLocations,
		eventBus:      eventBus,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateGeofence validates and stores a new geofence. An empty ID is assigned.
func (s *AuthoringService) CreateGeofence(ctx context.Context, geofence *entities.Geofence) (*entities.Geofence, error) {
	if geofence.ID == "" {
		geofence.ID = uuid.NewString()
	}
	now := s.now()
	geofence.CreatedAt = now
	geofence.UpdatedAt = now

	if err := geofence.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.geofences.Create(ctx, geofence); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventGeofenceUpserted, geofence.ServiceType, geofence.ID))
	return geofence, nil
}

// GetGeofence retrieves a geofence by ID
func (s *AuthoringService) GetGeofence(ctx context.Context, id string) (*entities.Geofence, error) {
	return s.geofences.GetByID(ctx, id)
}

// ListGeofences returns every geofence authored for a service type
func (s *AuthoringService) ListGeofences(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error) {
	if !serviceType.Valid() {
		return nil, apperrors.NewValidationError("unknown service type " + string(serviceType))
	}
	return s.geofences.ListByServiceType(ctx, serviceType)
}

// UpdateGeofence replaces a stored geofence
func (s *AuthoringService) UpdateGeofence(ctx context.Context, geofence *entities.Geofence) (*entities.Geofence, error) {
	existing, err := s.geofences.GetByID(ctx, geofence.ID)
	if err != nil {
		return nil, err
	}
	geofence.CreatedAt = existing.CreatedAt
	geofence.UpdatedAt = s.now()

	if err := geofence.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.geofences.Update(ctx, geofence); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventGeofenceUpserted, geofence.ServiceType, geofence.ID))
	if existing.ServiceType != geofence.ServiceType {
		s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventGeofenceDeleted, existing.ServiceType, geofence.ID))
	}
	return geofence, nil
}

// DeleteGeofence removes a geofence
func (s *AuthoringService) DeleteGeofence(ctx context.Context, id string) error {
	existing, err := s.geofences.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.geofences.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventGeofenceDeleted, existing.ServiceType, id))
	return nil
}

// CreateBaseLocation validates and stores a hub. A new default hub takes
// the default flag from any other hub of its service type.
func (s *AuthoringService) CreateBaseLocation(ctx context.Context, location *entities.BaseLocation) (*entities.BaseLocation, error) {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	now := s.now()
	location.CreatedAt = now
	location.UpdatedAt = now

	if err := location.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	create := s.baseLocations.Create
	if location.IsDefault {
		create = s.baseLocations.CreateDefault
	}
	if err := create(ctx, location); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventBaseLocationUpserted, location.ServiceType, location.ID))
	return location, nil
}

// GetBaseLocation retrieves a hub by ID
func (s *AuthoringService) GetBaseLocation(ctx context.Context, id string) (*entities.BaseLocation, error) {
	return s.baseLocations.GetByID(ctx, id)
}

// ListBaseLocations returns every hub for a service type
func (s *AuthoringService) ListBaseLocations(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error) {
	if !serviceType.Valid() {
		return nil, apperrors.NewValidationError("unknown service type " + string(serviceType))
	}
	return s.baseLocations.ListByServiceType(ctx, serviceType)
}

// UpdateBaseLocation replaces a stored hub
func (s *AuthoringService) UpdateBaseLocation(ctx context.Context, location *entities.BaseLocation) (*entities.BaseLocation, error) {
	existing, err := s.baseLocations.GetByID(ctx, location.ID)
	if err != nil {
		return nil, err
	}
	location.CreatedAt = existing.CreatedAt
	location.UpdatedAt = s.now()

	if err := location.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	update := s.baseLocations.Update
	if location.IsDefault {
		update = s.baseLocations.UpdateDefault
	}
	if err := update(ctx, location); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventBaseLocationUpserted, location.ServiceType, location.ID))
	if existing.ServiceType != location.ServiceType {
		s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventBaseLocationDeleted, existing.ServiceType, location.ID))
	}
	return location, nil
}

// DeleteBaseLocation removes a hub
func (s *AuthoringService) DeleteBaseLocation(ctx context.Context, id string) error {
	existing, err := s.baseLocations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.baseLocations.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, entities.NewCatalogEvent(entities.CatalogEventBaseLocationDeleted, existing.ServiceType, id))
	return nil
}

// publish is best effort; cached snapshots still expire on their TTL
func (s *AuthoringService) publish(ctx context.Context, event *entities.CatalogEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelCatalogUpdates, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("event_type", string(event.EventType)).
			Str("record_id", event.RecordID).
			Msg("Failed to publish catalog event")
	}
}
