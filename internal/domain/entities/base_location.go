package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// BaseLocation is a hub with a distance-tiered fee schedule used when no
// geofence matches
type BaseLocation struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	ServiceType ServiceType `json:"service_type" db:"service_type"`
	BaseLat     float64     `json:"base_lat" db:"base_lat"`
	BaseLng     float64     `json:"base_lng" db:"base_lng"`
	BaseFare    float64     `json:"base_fare" db:"base_fare"`
	BaseKm      float64     `json:"base_km" db:"base_km"`
	PerKmFee    float64     `json:"per_km_fee" db:"per_km_fee"`
	Priority    int         `json:"priority" db:"priority"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	IsDefault   bool        `json:"is_default" db:"is_default"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

var ErrNegativeFare = errors.New("base_fare, base_km and per_km_fee must not be negative")

// Point returns the hub coordinate
func (b *BaseLocation) Point() geo.Point {
	return geo.NewPoint(b.BaseLat, b.BaseLng)
}

// Validate checks ranges and required fields of a base location
func (b *BaseLocation) Validate() error {
	if b.Name == "" {
		return ErrNameRequired
	}
	if !b.ServiceType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownService, b.ServiceType)
	}
	if !b.Point().Valid() {
		return fmt.Errorf("%w: %s", geo.ErrCoordinateOutOfRange, b.Point())
	}
	if b.BaseFare < 0 || b.BaseKm < 0 || b.PerKmFee < 0 {
		return ErrNegativeFare
	}
	if b.Priority < MinPriority || b.Priority > MaxPriority {
		return ErrPriorityRange
	}
	return nil
}

// RawFee applies the distance tiers without rounding
func (b *BaseLocation) RawFee(distanceKm float64) float64 {
	if distanceKm <= b.BaseKm {
		return b.BaseFare
	}
	return b.BaseFare + b.PerKmFee*(distanceKm-b.BaseKm)
}
