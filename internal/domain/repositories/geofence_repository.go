package repositories

import (
	"context"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

// GeofenceRepository defines the interface for geofence data operations
type GeofenceRepository interface {
	// Create creates a new geofence
	Create(ctx context.Context, geofence *entities.Geofence) error

	// GetByID retrieves a geofence by ID
	GetByID(ctx context.Context, id string) (*entities.Geofence, error)

	// Update updates a geofence
	Update(ctx context.Context, geofence *entities.Geofence) error

	// Delete deletes a geofence
	Delete(ctx context.Context, id string) error

	// ListByServiceType returns every geofence for a service type,
	// active or not, in one read
	ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error)
}
