package entities

import (
	"time"

	"github.com/google/uuid"
)

// CatalogEventType represents the kind of authoring change
type CatalogEventType string

const (
	CatalogEventGeofenceUpserted     CatalogEventType = "geofence_upserted"
	CatalogEventGeofenceDeleted      CatalogEventType = "geofence_deleted"
	CatalogEventBaseLocationUpserted CatalogEventType = "base_location_upserted"
	CatalogEventBaseLocationDeleted  CatalogEventType = "base_location_deleted"
)

// CatalogEvent announces that the authored catalog for a service type changed
type CatalogEvent struct {
	ID          string           `json:"id"`
	EventType   CatalogEventType `json:"event_type"`
	ServiceType ServiceType      `json:"service_type"`
	RecordID    string           `json:"record_id"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewCatalogEvent creates a new catalog event
func NewCatalogEvent(eventType CatalogEventType, serviceType ServiceType, recordID string) *CatalogEvent {
	return &CatalogEvent{
		ID:          uuid.NewString(),
		EventType:   eventType,
		ServiceType: serviceType,
		RecordID:    recordID,
		Timestamp:   time.Now(),
	}
}
