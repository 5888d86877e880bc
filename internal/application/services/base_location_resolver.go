package services

import (
	"math"
	"sort"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// BaseLocationMatch is the hub chosen for a point and the fee it charges
type BaseLocationMatch struct {
	BaseLocation entities.BaseLocation
	DistanceKm   float64
	Fee          float64
}

// BaseLocationResolver prices a point from the nearest active hub
type BaseLocationResolver struct {
	currencyDigits   int
	tieEpsilonMeters float64
}

// NewBaseLocationResolver creates a resolver rounding fees to currencyDigits
// and treating hubs within tieEpsilonMeters of the nearest as tied
func NewBaseLocationResolver(currencyDigits int, tieEpsilonMeters float64) *BaseLocationResolver {
	if currencyDigits < 0 {
		currencyDigits = 0
	}
	if tieEpsilonMeters < 0 {
		tieEpsilonMeters = 0
	}
	return &BaseLocationResolver{currencyDigits: currencyDigits, tieEpsilonMeters: tieEpsilonMeters}
}

// Resolve returns the selected hub or nil when no hub is active.
// Distance never disqualifies a hub.
func (r *BaseLocationResolver) Resolve(snapshot *entities.CatalogSnapshot, point geo.Point) *BaseLocationMatch {
	_, match := r.Evaluate(snapshot, point)
	return match
}

// Evaluate lists every hub with its distance and fee and returns the match
func (r *BaseLocationResolver) Evaluate(snapshot *entities.CatalogSnapshot, point geo.Point) ([]entities.BaseLocationCandidate, *BaseLocationMatch) {
	all := snapshot.BaseLocations()
	candidates := make([]entities.BaseLocationCandidate, len(all))
	distancesM := make([]float64, len(all))
	var active []int

	for i := range all {
		b := &all[i]
		distancesM[i] = geo.HaversineDistance(point, b.Point())
		distanceKm := distancesM[i] / 1000
		candidates[i] = entities.BaseLocationCandidate{
			BaseLocationID: b.ID,
			Name:           b.Name,
			Priority:       b.Priority,
			IsDefault:      b.IsDefault,
			DistanceKm:     roundTo(distanceKm, 3),
			Fee:            r.Fee(b, distanceKm),
		}
		if !b.IsActive {
			candidates[i].Reason = entities.CandidateInactive
			continue
		}
		active = append(active, i)
	}

	if len(active) == 0 {
		return candidates, nil
	}

	nearest := math.Inf(1)
	for _, i := range active {
		nearest = math.Min(nearest, distancesM[i])
	}

	// Hubs within the tie window compete on priority, then default, then id.
	// Everything else is ordered by distance.
	sort.SliceStable(active, func(a, b int) bool {
		ia, ib := active[a], active[b]
		tiedA := distancesM[ia]-nearest <= r.tieEpsilonMeters
		tiedB := distancesM[ib]-nearest <= r.tieEpsilonMeters
		if tiedA != tiedB {
			return tiedA
		}
		if !tiedA && distancesM[ia] != distancesM[ib] {
			return distancesM[ia] < distancesM[ib]
		}
		ha, hb := &all[ia], &all[ib]
		if ha.Priority != hb.Priority {
			return ha.Priority > hb.Priority
		}
		if ha.IsDefault != hb.IsDefault {
			return ha.IsDefault
		}
		return ha.ID < hb.ID
	})

	winner := active[0]
	candidates[winner].Accepted = true
	candidates[winner].Reason = entities.CandidateSelected
	for _, i := range active[1:] {
		if distancesM[i]-nearest <= r.tieEpsilonMeters {
			candidates[i].Reason = entities.CandidateOutranked
		} else {
			candidates[i].Reason = entities.CandidateFartherThanPeers
		}
	}

	b := all[winner]
	distanceKm := distancesM[winner] / 1000
	return candidates, &BaseLocationMatch{
		BaseLocation: b,
		DistanceKm:   distanceKm,
		Fee:          r.Fee(&b, distanceKm),
	}
}

// Fee applies the hub's distance tiers and rounds half-up to the currency unit
func (r *BaseLocationResolver) Fee(b *entities.BaseLocation, distanceKm float64) float64 {
	return roundTo(b.RawFee(distanceKm), r.currencyDigits)
}

// roundTo rounds half-up at the given number of decimal digits. The small
// bias absorbs binary representation error such as 2.675 -> 2.67499999.
func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Floor(v*scale+0.5+1e-9) / scale
}
