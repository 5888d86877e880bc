package repositories

import (
	"context"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

// BaseLocationRepository defines the interface for base location data operations
type BaseLocationRepository interface {
	// Create creates a new base location
	Create(ctx context.Context, location *entities.BaseLocation) error

	// GetByID retrieves a base location by ID
	GetByID(ctx context.Context, id string) (*entities.BaseLocation, error)

	// Update updates a base location
	Update(ctx context.Context, location *entities.BaseLocation) error

	// Delete deletes a base location
	Delete(ctx context.Context, id string) error

	// ListByServiceType returns every base location for a service type
	ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error)

	// CreateDefault creates a default base location and unsets is_default on
	// every other base location of its service type as one atomic write
	CreateDefault(ctx context.Context, location *entities.BaseLocation) error

	// UpdateDefault updates a default base location and unsets is_default on
	// every other base location of its service type as one atomic write
	UpdateDefault(ctx context.Context, location *entities.BaseLocation) error
}
