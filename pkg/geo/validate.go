package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRingNotClosed        = errors.New("polygon ring is not closed")
	ErrTooFewVertices       = errors.New("polygon ring needs at least 3 distinct vertices")
	ErrSelfIntersecting     = errors.New("polygon ring intersects itself")
	ErrCoordinateOutOfRange = errors.New("coordinate out of range")
	ErrAntimeridianSpan     = errors.New("polygon ring spans the antimeridian")
	ErrNonPositiveRadius    = errors.New("circle radius must be positive")
)

// ValidateRing checks that ring is a closed, simple polygon with at least
// three distinct vertices inside the supported coordinate region.
func ValidateRing(ring []Point) error {
	for i, p := range ring {
		if !p.Valid() {
			return fmt.Errorf("%w: vertex %d %s", ErrCoordinateOutOfRange, i, p)
		}
	}

	if len(ring) < 4 {
		return ErrTooFewVertices
	}
	if ring[0] != ring[len(ring)-1] {
		return ErrRingNotClosed
	}

	distinct := make(map[Point]struct{}, len(ring))
	for _, p := range ring[:len(ring)-1] {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return ErrTooFewVertices
	}

	for i := 0; i < len(ring)-1; i++ {
		if math.Abs(ring[i+1].Lng-ring[i].Lng) > 180 {
			return ErrAntimeridianSpan
		}
	}

	if !isSimple(compact(ring)) {
		return ErrSelfIntersecting
	}

	return nil
}

// ValidateCircle checks a circle's center and radius.
func ValidateCircle(center Point, radiusMeters float64) error {
	if !center.Valid() {
		return fmt.Errorf("%w: center %s", ErrCoordinateOutOfRange, center)
	}
	if !(radiusMeters > 0) || math.IsInf(radiusMeters, 0) {
		return ErrNonPositiveRadius
	}
	return nil
}

// compact drops consecutive duplicate vertices, keeping the ring closed.
func compact(ring []Point) []Point {
	out := make([]Point, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// isSimple reports whether no two non-adjacent edges of a closed ring touch.
func isSimple(ring []Point) bool {
	edges := len(ring) - 1
	if edges < 3 {
		return false
	}

	for i := 0; i < edges; i++ {
		for j := i + 1; j < edges; j++ {
			if j == i+1 || (i == 0 && j == edges-1) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return false
			}
		}
	}
	return true
}

func orientation(a, b, c Point) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.Lng, b.Lng) <= p.Lng && p.Lng <= math.Max(a.Lng, b.Lng) &&
		math.Min(a.Lat, b.Lat) <= p.Lat && p.Lat <= math.Max(a.Lat, b.Lat)
}

func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}
