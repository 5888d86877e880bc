package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by every distance and area
// calculation in this package.
const EarthRadiusMeters = 6371000.0

// Point is a WGS-84 coordinate in decimal degrees.
// On the wire it is encoded as a [lat, lng] pair.
type Point struct {
	Lat float64
	Lng float64
}

// NewPoint creates a point from latitude and longitude
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// Valid reports whether the point lies within the WGS-84 coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// MarshalJSON encodes the point as [lat, lng]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a [lat, lng] pair
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("point must be a [lat, lng] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(pair))
	}
	p.Lat, p.Lng = pair[0], pair[1]
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", p.Lat, p.Lng)
}

// HaversineDistance returns the great-circle distance between a and b in meters.
func HaversineDistance(a, b Point) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// HaversineDistanceKm is HaversineDistance expressed in kilometers.
func HaversineDistanceKm(a, b Point) float64 {
	return HaversineDistance(a, b) / 1000.0
}

// PointInCircle reports whether p is within radiusMeters of center.
// Points exactly on the boundary are inside.
func PointInCircle(p, center Point, radiusMeters float64) bool {
	return HaversineDistance(p, center) <= radiusMeters
}

// CircleArea approximates the area of a circle in square meters.
func CircleArea(radiusMeters float64) float64 {
	return math.Pi * radiusMeters * radiusMeters
}

// Destination returns the point reached by travelling distanceMeters from
// origin on the given initial bearing (degrees clockwise from north).
func Destination(origin Point, bearingDeg, distanceMeters float64) Point {
	delta := distanceMeters / EarthRadiusMeters
	theta := degreesToRadians(bearingDeg)
	lat1 := degreesToRadians(origin.Lat)
	lng1 := degreesToRadians(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: radiansToDegrees(lat2), Lng: radiansToDegrees(lng2)}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
