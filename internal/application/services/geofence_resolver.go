package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// GeofenceEvaluation is the outcome of running every geofence in a snapshot
// through the resolver
type GeofenceEvaluation struct {
	// Candidates holds one entry per geofence, ordered by id
	Candidates []entities.GeofenceCandidate
	// Ranked holds the eligible geofences, best first
	Ranked []entities.Geofence
}

// Winner returns the best eligible geofence or nil
func (e *GeofenceEvaluation) Winner() *entities.Geofence {
	if len(e.Ranked) == 0 {
		return nil
	}
	return &e.Ranked[0]
}

// GeofenceResolver picks the owning geofence for a point
type GeofenceResolver struct {
	capacity providers.CapacityCounter
}

// NewGeofenceResolver creates a resolver. With a nil counter daily
// capacity is not enforced.
func NewGeofenceResolver(capacity providers.CapacityCounter) *GeofenceResolver {
	return &GeofenceResolver{capacity: capacity}
}

// Resolve returns the winning geofence for the query, or nil
func (r *GeofenceResolver) Resolve(ctx context.Context, snapshot *entities.CatalogSnapshot, point geo.Point, orderValue *float64, atTime time.Time) (*entities.Geofence, error) {
	eval, err := r.Evaluate(ctx, snapshot, point, orderValue, atTime)
	if err != nil {
		return nil, err
	}
	return eval.Winner(), nil
}

// Rank returns every eligible geofence in precedence order
func (r *GeofenceResolver) Rank(ctx context.Context, snapshot *entities.CatalogSnapshot, point geo.Point, orderValue *float64, atTime time.Time) ([]entities.Geofence, error) {
	eval, err := r.Evaluate(ctx, snapshot, point, orderValue, atTime)
	if err != nil {
		return nil, err
	}
	return eval.Ranked, nil
}

type rankedGeofence struct {
	index int
	area  float64
}

// Evaluate classifies every geofence in the snapshot. Filters apply in
// order: active, open, minimum order, well-formed shape, containment,
// capacity. Survivors are ranked by priority (desc), area (asc), id (asc).
func (r *GeofenceResolver) Evaluate(ctx context.Context, snapshot *entities.CatalogSnapshot, point geo.Point, orderValue *float64, atTime time.Time) (*GeofenceEvaluation, error) {
	all := snapshot.Geofences()
	candidates := make([]entities.GeofenceCandidate, len(all))
	var eligible []rankedGeofence

	for i := range all {
		g := &all[i]
		c := entities.GeofenceCandidate{
			GeofenceID: g.ID,
			Name:       g.Name,
			ShapeType:  g.ShapeType,
			Priority:   g.Priority,
			Partner:    g.Partner,
		}

		switch {
		case !g.IsActive:
			c.Reason = entities.CandidateInactive
		case !snapshot.IsOpen(g, atTime):
			c.Reason = entities.CandidateClosed
		case !g.AcceptsOrderValue(orderValue):
			c.Reason = entities.CandidateBelowMinOrder
		default:
			if err := g.ValidateShape(); err != nil {
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("geofence_id", g.ID).
					Msg("Skipping malformed geofence")
				c.Reason = entities.CandidateMalformed
				c.Detail = err.Error()
				break
			}
			c.AreaSqM = g.Area()
			if !g.Contains(point) {
				c.Reason = entities.CandidateOutsideShape
				break
			}
			eligible = append(eligible, rankedGeofence{index: i, area: c.AreaSqM})
		}
		candidates[i] = c
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		ga, gb := &all[eligible[a].index], &all[eligible[b].index]
		if ga.Priority != gb.Priority {
			return ga.Priority > gb.Priority
		}
		if eligible[a].area != eligible[b].area {
			return eligible[a].area < eligible[b].area
		}
		return ga.ID < gb.ID
	})

	eval := &GeofenceEvaluation{Candidates: candidates}
	for _, e := range eligible {
		g := &all[e.index]
		full, err := r.capacityExhausted(ctx, snapshot, g, atTime)
		if err != nil {
			return nil, err
		}
		if full {
			candidates[e.index].Reason = entities.CandidateCapacityFull
			continue
		}
		if len(eval.Ranked) == 0 {
			candidates[e.index].Accepted = true
			candidates[e.index].Reason = entities.CandidateSelected
		} else {
			candidates[e.index].Reason = entities.CandidateOutranked
			candidates[e.index].Detail = fmt.Sprintf("outranked by %s", eval.Ranked[0].ID)
		}
		eval.Ranked = append(eval.Ranked, *g)
	}

	return eval, nil
}

func (r *GeofenceResolver) capacityExhausted(ctx context.Context, snapshot *entities.CatalogSnapshot, g *entities.Geofence, atTime time.Time) (bool, error) {
	if r.capacity == nil || g.CapacityPerDay == nil {
		return false, nil
	}
	used, err := r.capacity.Used(ctx, g.ID, snapshot.CapacityDate(g, atTime))
	if err != nil {
		return false, fmt.Errorf("capacity lookup for geofence %s: %w", g.ID, err)
	}
	return used >= *g.CapacityPerDay, nil
}
