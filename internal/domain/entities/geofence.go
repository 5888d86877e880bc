package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// ShapeType is the geometry used by a geofence
type ShapeType string

const (
	ShapeTypePolygon ShapeType = "polygon"
	ShapeTypeCircle  ShapeType = "circle"
)

const (
	MinPriority = 1
	MaxPriority = 10
)

// PartnerRef points at the fulfillment partner that owns a geofence.
// Exactly one of StoreID or CenterID is set.
type PartnerRef struct {
	StoreID  string `json:"store_id,omitempty" yaml:"store_id"`
	CenterID string `json:"center_id,omitempty" yaml:"center_id"`
}

// ID returns whichever partner identifier is set
func (p PartnerRef) ID() string {
	if p.StoreID != "" {
		return p.StoreID
	}
	return p.CenterID
}

// Geofence is an authored polygon or circle tied to one partner
type Geofence struct {
	ID             string       `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	ServiceType    ServiceType  `json:"service_type" db:"service_type"`
	ShapeType      ShapeType    `json:"shape_type" db:"shape_type"`
	Polygon        []geo.Point  `json:"polygon,omitempty" db:"-"`
	CircleCenter   *geo.Point   `json:"circle_center,omitempty" db:"-"`
	RadiusMeters   float64      `json:"radius_meters,omitempty" db:"radius_meters"`
	Priority       int          `json:"priority" db:"priority"`
	IsActive       bool         `json:"is_active" db:"is_active"`
	CapacityPerDay *int         `json:"capacity_per_day,omitempty" db:"capacity_per_day"`
	MinOrderValue  *float64     `json:"min_order_value,omitempty" db:"min_order_value"`
	Fee            *float64     `json:"fee,omitempty" db:"fee"`
	WorkingHours   WorkingHours `json:"working_hours,omitempty" db:"-"`
	Timezone       string       `json:"timezone,omitempty" db:"timezone"`
	Partner        PartnerRef   `json:"partner_ref" db:"-"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

var (
	ErrUnknownShape     = errors.New("unknown shape type")
	ErrMissingCenter    = errors.New("circle geofence requires a center")
	ErrPartnerRef       = errors.New("exactly one of store_id or center_id must be set")
	ErrPartnerMismatch  = errors.New("partner reference does not match service type")
	ErrPriorityRange    = errors.New("priority must be between 1 and 10")
	ErrCapacity         = errors.New("capacity_per_day must be positive")
	ErrMinOrderValue    = errors.New("min_order_value must not be negative")
	ErrFee              = errors.New("fee must not be negative")
	ErrUnknownService   = errors.New("unknown service type")
	ErrUnknownTimezone  = errors.New("unknown timezone")
	ErrNameRequired     = errors.New("name is required")
	ErrShapeFieldsMixed = errors.New("shape fields do not match shape type")
)

// ValidateShape checks only the geometry. Resolvers use it to skip malformed
// records that slipped past authoring.
func (g *Geofence) ValidateShape() error {
	switch g.ShapeType {
	case ShapeTypePolygon:
		if g.CircleCenter != nil || g.RadiusMeters != 0 {
			return ErrShapeFieldsMixed
		}
		return geo.ValidateRing(g.Polygon)
	case ShapeTypeCircle:
		if len(g.Polygon) > 0 {
			return ErrShapeFieldsMixed
		}
		if g.CircleCenter == nil {
			return ErrMissingCenter
		}
		return geo.ValidateCircle(*g.CircleCenter, g.RadiusMeters)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownShape, g.ShapeType)
	}
}

// Validate checks that the record is complete and its shape well formed
func (g *Geofence) Validate() error {
	if g.Name == "" {
		return ErrNameRequired
	}
	if !g.ServiceType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownService, g.ServiceType)
	}
	if err := g.ValidateShape(); err != nil {
		return err
	}
	if g.Priority < MinPriority || g.Priority > MaxPriority {
		return ErrPriorityRange
	}
	if g.CapacityPerDay != nil && *g.CapacityPerDay <= 0 {
		return ErrCapacity
	}
	if g.MinOrderValue != nil && *g.MinOrderValue < 0 {
		return ErrMinOrderValue
	}
	if g.Fee != nil && *g.Fee < 0 {
		return ErrFee
	}
	if (g.Partner.StoreID == "") == (g.Partner.CenterID == "") {
		return ErrPartnerRef
	}
	switch g.ServiceType {
	case ServiceTypeDelivery:
		if g.Partner.StoreID == "" {
			return ErrPartnerMismatch
		}
	case ServiceTypeLabCollection:
		if g.Partner.CenterID == "" {
			return ErrPartnerMismatch
		}
	}
	if g.Timezone != "" {
		if _, err := time.LoadLocation(g.Timezone); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownTimezone, g.Timezone)
		}
	}
	return g.WorkingHours.Validate()
}

// Contains runs the containment test matching the geofence's shape.
// Callers validate the shape first.
func (g *Geofence) Contains(p geo.Point) bool {
	switch g.ShapeType {
	case ShapeTypePolygon:
		return geo.PointInPolygon(p, g.Polygon)
	case ShapeTypeCircle:
		return g.CircleCenter != nil && geo.PointInCircle(p, *g.CircleCenter, g.RadiusMeters)
	}
	return false
}

// Area approximates the covered area in square meters
func (g *Geofence) Area() float64 {
	if g.ShapeType == ShapeTypeCircle {
		return geo.CircleArea(g.RadiusMeters)
	}
	return geo.PolygonArea(g.Polygon)
}

// AcceptsOrderValue applies the minimum order gate; a nil order value always passes
func (g *Geofence) AcceptsOrderValue(orderValue *float64) bool {
	if g.MinOrderValue == nil || orderValue == nil {
		return true
	}
	return *orderValue >= *g.MinOrderValue
}

// AssignmentFee is the geofence-defined fee, or zero
func (g *Geofence) AssignmentFee() float64 {
	if g.Fee == nil {
		return 0
	}
	return *g.Fee
}

// Clone returns a deep copy
func (g Geofence) Clone() Geofence {
	out := g
	out.Polygon = append([]geo.Point(nil), g.Polygon...)
	if g.CircleCenter != nil {
		c := *g.CircleCenter
		out.CircleCenter = &c
	}
	if g.CapacityPerDay != nil {
		v := *g.CapacityPerDay
		out.CapacityPerDay = &v
	}
	if g.MinOrderValue != nil {
		v := *g.MinOrderValue
		out.MinOrderValue = &v
	}
	if g.Fee != nil {
		v := *g.Fee
		out.Fee = &v
	}
	out.WorkingHours = g.WorkingHours.Clone()
	return out
}
