package providers

import (
	"context"
)

// CapacityCounter tracks daily assignments per geofence.
// Days are "2006-01-02" strings in the geofence's local zone.
type CapacityCounter interface {
	// Used returns how many slots have been taken for the day
	Used(ctx context.Context, geofenceID, day string) (int, error)

	// TryReserve atomically takes one slot if fewer than capacity are used.
	// It returns false when the day is already full.
	TryReserve(ctx context.Context, geofenceID, day string, capacity int) (bool, error)

	// Release returns one slot; the count never goes below zero
	Release(ctx context.Context, geofenceID, day string) error
}
