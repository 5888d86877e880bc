package geo

import (
	"math"
)

// PointInPolygon reports whether p lies inside ring using spherical ray
// casting. A ray is cast north along p's meridian and every crossing with a
// great-circle edge of the ring toggles the result.
//
// Rings that span the antimeridian or enclose a pole are not supported; they
// are rejected by ValidateRing before they reach a resolver.
func PointInPolygon(p Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	inside := false
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]

		// Half-open straddle test so a ray through a vertex is counted once.
		if (a.Lng > p.Lng) == (b.Lng > p.Lng) {
			continue
		}

		if edgeLatitudeAt(a, b, p.Lng) > p.Lat {
			inside = !inside
		}
	}

	return inside
}

// edgeLatitudeAt returns the latitude, in degrees, of the great circle through
// a and b at longitude lng. Callers guarantee a.Lng != b.Lng.
func edgeLatitudeAt(a, b Point, lng float64) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	lng1 := degreesToRadians(a.Lng)
	lng2 := degreesToRadians(b.Lng)
	l := degreesToRadians(lng)

	num := math.Tan(lat1)*math.Sin(lng2-l) + math.Tan(lat2)*math.Sin(l-lng1)
	den := math.Sin(lng2 - lng1)

	return radiansToDegrees(math.Atan(num / den))
}

// PolygonArea approximates the area enclosed by ring in square meters using
// the spherical excess of its edges. The ring may be open or closed.
func PolygonArea(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		total += degreesToRadians(p2.Lng-p1.Lng) *
			(2 + math.Sin(degreesToRadians(p1.Lat)) + math.Sin(degreesToRadians(p2.Lat)))
	}

	return math.Abs(total * EarthRadiusMeters * EarthRadiusMeters / 2.0)
}

// Bounds is an axis-aligned latitude/longitude box.
type Bounds struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// RingBounds returns the bounding box of ring.
func RingBounds(ring []Point) Bounds {
	if len(ring) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLat: ring[0].Lat, MaxLat: ring[0].Lat, MinLng: ring[0].Lng, MaxLng: ring[0].Lng}
	for _, p := range ring[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b
}

// Contains reports whether p is inside or on the edge of the box.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
