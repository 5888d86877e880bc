package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// ServiceabilityOptions tunes a ServiceabilityService
type ServiceabilityOptions struct {
	// MaxServiceRadiusKm rejects hub fallbacks farther than this; 0 disables the cap
	MaxServiceRadiusKm float64
	Metrics            *observability.Metrics
	Now                func() time.Time
}

// ServiceabilityService answers whether a point can be served and by whom
type ServiceabilityService struct {
	catalog       SnapshotProvider
	geofences     *GeofenceResolver
	baseLocations *BaseLocationResolver
	capacity      providers.CapacityCounter
	maxRadiusKm   float64
	metrics       *observability.Metrics
	now           func() time.Time
}

// NewServiceabilityService creates a new serviceability service. The
// capacity counter backs Reserve and Release; the geofence resolver reads
// the same counter.
func NewServiceabilityService(
	catalog SnapshotProvider,
	geofences *GeofenceResolver,
	baseLocations *BaseLocationResolver,
	capacity providers.CapacityCounter,
	opts ServiceabilityOptions,
) *ServiceabilityService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ServiceabilityService{
		catalog:       catalog,
		geofences:     geofences,
		baseLocations: baseLocations,
		capacity:      capacity,
		maxRadiusKm:   opts.MaxServiceRadiusKm,
		metrics:       opts.Metrics,
		now:           now,
	}
}

// Check resolves the query without side effects. The same query against
// the same catalog and counters returns the same result.
func (s *ServiceabilityService) Check(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.ServiceabilityResult, error) {
	ctx, span := observability.StartSpan(ctx, "ServiceabilityService.Check")
	defer span.End()
	start := time.Now()

	point, atTime, err := s.validate(query)
	if err != nil {
		return nil, err
	}
	observability.SetSpanAttributes(span,
		attribute.String("service_type", string(query.ServiceType)),
		attribute.Float64("lat", point.Lat),
		attribute.Float64("lng", point.Lng),
	)

	snapshot, err := s.snapshot(ctx, query.ServiceType)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	eval, err := s.geofences.Evaluate(ctx, snapshot, point, query.OrderValue, atTime)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewUnavailableError("capacity counter unavailable", err)
	}

	var result *entities.ServiceabilityResult
	if winner := eval.Winner(); winner != nil {
		result = geofenceResult(snapshot, winner, atTime)
	} else {
		_, match := s.baseLocations.Evaluate(snapshot, point)
		result = s.fallbackResult(snapshot, match, atTime)
	}

	observability.RecordCheckMetric(ctx, s.metrics, string(query.ServiceType), outcome(result), time.Since(start))
	return result, nil
}

// Explain reports how every candidate fared for the query. The embedded
// result is the one Check returns for the same inputs.
func (s *ServiceabilityService) Explain(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.Explanation, error) {
	ctx, span := observability.StartSpan(ctx, "ServiceabilityService.Explain")
	defer span.End()

	point, atTime, err := s.validate(query)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, query.ServiceType)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	eval, err := s.geofences.Evaluate(ctx, snapshot, point, query.OrderValue, atTime)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewUnavailableError("capacity counter unavailable", err)
	}
	hubs, match := s.baseLocations.Evaluate(snapshot, point)

	var result *entities.ServiceabilityResult
	if winner := eval.Winner(); winner != nil {
		result = geofenceResult(snapshot, winner, atTime)
		for i := range hubs {
			if hubs[i].Reason != entities.CandidateInactive {
				hubs[i].Accepted = false
				hubs[i].Reason = entities.CandidateNotConsidered
			}
		}
	} else {
		result = s.fallbackResult(snapshot, match, atTime)
		if match != nil && result.Reason != nil && result.Reason.Code == entities.ReasonBeyondServiceRadius {
			for i := range hubs {
				if hubs[i].BaseLocationID == match.BaseLocation.ID {
					hubs[i].Accepted = false
					hubs[i].Reason = entities.CandidateBeyondRadius
				}
			}
		}
	}

	return &entities.Explanation{
		Result:         result,
		Geofences:      eval.Candidates,
		BaseLocations:  hubs,
		CatalogVersion: snapshot.Version(),
	}, nil
}

// Reserve resolves the query and takes a daily capacity slot from the
// winning geofence. When another request took the last slot first the next
// ranked geofence is tried, then the hub fallback.
func (s *ServiceabilityService) Reserve(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.ServiceabilityResult, error) {
	ctx, span := observability.StartSpan(ctx, "ServiceabilityService.Reserve")
	defer span.End()
	start := time.Now()

	point, atTime, err := s.validate(query)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, query.ServiceType)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	ranked, err := s.geofences.Rank(ctx, snapshot, point, query.OrderValue, atTime)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewUnavailableError("capacity counter unavailable", err)
	}

	for i := range ranked {
		g := &ranked[i]
		if g.CapacityPerDay == nil || s.capacity == nil {
			return s.recordReserve(ctx, query, geofenceResult(snapshot, g, atTime), start), nil
		}
		day := snapshot.CapacityDate(g, atTime)
		ok, err := s.capacity.TryReserve(ctx, g.ID, day, *g.CapacityPerDay)
		if err != nil {
			observability.RecordError(span, err)
			return nil, apperrors.NewUnavailableError("capacity counter unavailable", err)
		}
		if ok {
			return s.recordReserve(ctx, query, geofenceResult(snapshot, g, atTime), start), nil
		}
		observability.RecordCapacityConflict(ctx, s.metrics, g.ID)
		observability.LoggerFromContext(ctx).Info().
			Str("geofence_id", g.ID).
			Str("day", day).
			Msg("Geofence filled up during reservation, trying next candidate")
	}

	match := s.baseLocations.Resolve(snapshot, point)
	return s.recordReserve(ctx, query, s.fallbackResult(snapshot, match, atTime), start), nil
}

// Release gives back a slot taken by Reserve for the geofence on the day
// atTime falls in. Releasing an unused day is a no-op.
func (s *ServiceabilityService) Release(ctx context.Context, geofenceID string, serviceType entities.ServiceType, atTime time.Time) error {
	ctx, span := observability.StartSpan(ctx, "ServiceabilityService.Release")
	defer span.End()

	if geofenceID == "" {
		return apperrors.NewValidationError("geofence_id is required")
	}
	if !serviceType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown service type %q", serviceType))
	}
	if atTime.IsZero() {
		atTime = s.now()
	}

	snapshot, err := s.snapshot(ctx, serviceType)
	if err != nil {
		return err
	}

	var target *entities.Geofence
	geofences := snapshot.Geofences()
	for i := range geofences {
		if geofences[i].ID == geofenceID {
			target = &geofences[i]
			break
		}
	}
	if target == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", geofenceID))
	}
	if target.CapacityPerDay == nil || s.capacity == nil {
		return nil
	}

	if err := s.capacity.Release(ctx, geofenceID, snapshot.CapacityDate(target, atTime)); err != nil {
		observability.RecordError(span, err)
		return apperrors.NewUnavailableError("capacity counter unavailable", err)
	}
	return nil
}

func (s *ServiceabilityService) validate(query *entities.ServiceabilityQuery) (geo.Point, time.Time, error) {
	if query == nil || query.Point == nil {
		return geo.Point{}, time.Time{}, apperrors.NewValidationError("point is required")
	}
	if !query.Point.Valid() {
		return geo.Point{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("coordinates out of range: %s", query.Point))
	}
	if !query.ServiceType.Valid() {
		return geo.Point{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("unknown service type %q", query.ServiceType))
	}
	if query.OrderValue != nil {
		if v := *query.OrderValue; math.IsNaN(v) || math.IsInf(v, 0) {
			return geo.Point{}, time.Time{}, apperrors.NewValidationError("order_value must be a finite number")
		}
		if *query.OrderValue < 0 {
			return geo.Point{}, time.Time{}, apperrors.NewValidationError("order_value must not be negative")
		}
	}

	atTime := s.now()
	if query.AtTime != nil {
		atTime = *query.AtTime
	}
	return *query.Point, atTime, nil
}

// snapshot loads the catalog; any failure other than a bad request is
// reported as unavailable so callers never read it as "not serviceable"
func (s *ServiceabilityService) snapshot(ctx context.Context, serviceType entities.ServiceType) (*entities.CatalogSnapshot, error) {
	snapshot, err := s.catalog.Snapshot(ctx, serviceType)
	if err == nil {
		return snapshot, nil
	}
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) || apperrors.IsType(err, apperrors.ErrorTypeUnavailable) {
		return nil, err
	}
	return nil, apperrors.NewUnavailableError("catalog unavailable", err)
}

func (s *ServiceabilityService) fallbackResult(snapshot *entities.CatalogSnapshot, match *BaseLocationMatch, atTime time.Time) *entities.ServiceabilityResult {
	result := &entities.ServiceabilityResult{
		CatalogVersion: snapshot.Version(),
		EvaluatedAt:    atTime,
	}

	if match == nil {
		if !snapshot.HasActiveShapes() {
			result.Reason = &entities.Reason{
				Code:    entities.ReasonNoActiveShapes,
				Message: fmt.Sprintf("no active geofences or base locations configured for %s", snapshot.ServiceType()),
			}
		} else {
			result.Reason = &entities.Reason{
				Code:    entities.ReasonOutsideCoverage,
				Message: "location is outside every active service area",
			}
		}
		return result
	}

	if s.maxRadiusKm > 0 && match.DistanceKm > s.maxRadiusKm {
		result.Reason = &entities.Reason{
			Code:    entities.ReasonBeyondServiceRadius,
			Message: fmt.Sprintf("nearest base location is %.1f km away, beyond the %.1f km service radius", match.DistanceKm, s.maxRadiusKm),
		}
		return result
	}

	distanceKm := roundTo(match.DistanceKm, 3)
	result.IsServiceable = true
	result.Assignment = &entities.Assignment{
		Kind:           entities.AssignmentKindBaseLocation,
		BaseLocationID: match.BaseLocation.ID,
		Fee:            match.Fee,
		DistanceKm:     &distanceKm,
	}
	return result
}

func geofenceResult(snapshot *entities.CatalogSnapshot, g *entities.Geofence, atTime time.Time) *entities.ServiceabilityResult {
	partner := g.Partner
	return &entities.ServiceabilityResult{
		IsServiceable: true,
		Assignment: &entities.Assignment{
			Kind:       entities.AssignmentKindGeofence,
			GeofenceID: g.ID,
			PartnerRef: &partner,
			Fee:        g.AssignmentFee(),
		},
		CatalogVersion: snapshot.Version(),
		EvaluatedAt:    atTime,
	}
}

func (s *ServiceabilityService) recordReserve(ctx context.Context, query *entities.ServiceabilityQuery, result *entities.ServiceabilityResult, start time.Time) *entities.ServiceabilityResult {
	observability.RecordCheckMetric(ctx, s.metrics, string(query.ServiceType), "reserve_"+outcome(result), time.Since(start))
	return result
}

func outcome(result *entities.ServiceabilityResult) string {
	switch {
	case result.IsServiceable && result.Assignment.Kind == entities.AssignmentKindGeofence:
		return "geofence"
	case result.IsServiceable:
		return "base_location"
	case result.Reason != nil:
		return string(result.Reason.Code)
	}
	return "unknown"
}
