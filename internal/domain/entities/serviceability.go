package entities

import (
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// ServiceabilityQuery asks whether a point can be served
type ServiceabilityQuery struct {
	Point       *geo.Point  `json:"point"`
	ServiceType ServiceType `json:"service_type"`
	OrderValue  *float64    `json:"order_value,omitempty"`
	AtTime      *time.Time  `json:"at_time,omitempty"`
}

// AssignmentKind tells which resolver produced an assignment
type AssignmentKind string

const (
	AssignmentKindGeofence     AssignmentKind = "geofence"
	AssignmentKindBaseLocation AssignmentKind = "base_location"
)

// Assignment is the partner or hub chosen for a serviceable point
type Assignment struct {
	Kind           AssignmentKind `json:"kind"`
	GeofenceID     string         `json:"geofence_id,omitempty"`
	PartnerRef     *PartnerRef    `json:"partner_ref,omitempty"`
	BaseLocationID string         `json:"base_location_id,omitempty"`
	Fee            float64        `json:"fee"`
	DistanceKm     *float64       `json:"distance_km,omitempty"`
}

// ReasonCode distinguishes the causes of a non-serviceable result
type ReasonCode string

const (
	// ReasonNoActiveShapes means nothing active is configured for the service type
	ReasonNoActiveShapes ReasonCode = "NO_ACTIVE_SHAPES"
	// ReasonOutsideCoverage means the point falls outside every configured shape
	ReasonOutsideCoverage ReasonCode = "OUTSIDE_COVERAGE"
	// ReasonBeyondServiceRadius means the nearest hub is past the configured cap
	ReasonBeyondServiceRadius ReasonCode = "BEYOND_SERVICE_RADIUS"
)

// Reason explains a non-serviceable result
type Reason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

// ServiceabilityResult is the normalized decision returned to callers
type ServiceabilityResult struct {
	IsServiceable  bool        `json:"is_serviceable"`
	Assignment     *Assignment `json:"assignment,omitempty"`
	Reason         *Reason     `json:"reason,omitempty"`
	CatalogVersion string      `json:"catalog_version"`
	EvaluatedAt    time.Time   `json:"evaluated_at"`
}

// CandidateReason records why a candidate was accepted or rejected
type CandidateReason string

const (
	CandidateSelected         CandidateReason = "selected"
	CandidateOutranked        CandidateReason = "outranked"
	CandidateInactive         CandidateReason = "inactive"
	CandidateClosed           CandidateReason = "closed"
	CandidateBelowMinOrder    CandidateReason = "below_min_order"
	CandidateOutsideShape     CandidateReason = "outside_shape"
	CandidateMalformed        CandidateReason = "malformed_shape"
	CandidateCapacityFull     CandidateReason = "capacity_exhausted"
	CandidateNotConsidered    CandidateReason = "not_considered"
	CandidateFartherThanPeers CandidateReason = "farther_than_selected"
	CandidateBeyondRadius     CandidateReason = "beyond_service_radius"
)

// GeofenceCandidate is one geofence as seen by the resolver
type GeofenceCandidate struct {
	GeofenceID string          `json:"geofence_id"`
	Name       string          `json:"name"`
	ShapeType  ShapeType       `json:"shape_type"`
	Priority   int             `json:"priority"`
	AreaSqM    float64         `json:"area_sq_m"`
	Partner    PartnerRef      `json:"partner_ref"`
	Accepted   bool            `json:"accepted"`
	Reason     CandidateReason `json:"reason"`
	Detail     string          `json:"detail,omitempty"`
}

// BaseLocationCandidate is one hub as seen by the resolver
type BaseLocationCandidate struct {
	BaseLocationID string          `json:"base_location_id"`
	Name           string          `json:"name"`
	Priority       int             `json:"priority"`
	IsDefault      bool            `json:"is_default"`
	DistanceKm     float64         `json:"distance_km"`
	Fee            float64         `json:"fee"`
	Accepted       bool            `json:"accepted"`
	Reason         CandidateReason `json:"reason"`
}

// Explanation lists every candidate considered for a query
type Explanation struct {
	Result         *ServiceabilityResult   `json:"result"`
	Geofences      []GeofenceCandidate     `json:"geofences"`
	BaseLocations  []BaseLocationCandidate `json:"base_locations"`
	CatalogVersion string                  `json:"catalog_version"`
}
