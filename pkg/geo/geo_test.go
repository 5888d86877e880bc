package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square returns a closed ring of half-width d degrees around center.
func square(center Point, d float64) []Point {
	return []Point{
		{Lat: center.Lat - d, Lng: center.Lng - d},
		{Lat: center.Lat - d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng + d},
		{Lat: center.Lat + d, Lng: center.Lng - d},
		{Lat: center.Lat - d, Lng: center.Lng - d},
	}
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name      string
		a         Point
		b         Point
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same location",
			a:         NewPoint(28.70, 77.10),
			b:         NewPoint(28.70, 77.10),
			expected:  0,
			tolerance: 0.0001,
		},
		{
			name:      "One degree of latitude",
			a:         NewPoint(0, 0),
			b:         NewPoint(1, 0),
			expected:  EarthRadiusMeters * math.Pi / 180,
			tolerance: 0.01,
		},
		{
			name:      "Delhi to Gurugram",
			a:         NewPoint(28.6139, 77.2090),
			b:         NewPoint(28.4595, 77.0266),
			expected:  24800,
			tolerance: 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HaversineDistance(tt.a, tt.b), tt.tolerance)
		})
	}
}

func TestHaversineDistance_Symmetric(t *testing.T) {
	a := NewPoint(28.70, 77.10)
	b := NewPoint(28.52, 77.39)
	assert.Equal(t, HaversineDistance(a, b), HaversineDistance(b, a))
	assert.InDelta(t, HaversineDistance(a, b)/1000, HaversineDistanceKm(a, b), 1e-12)
}

func TestPointInCircle_Boundary(t *testing.T) {
	center := NewPoint(28.70, 77.10)
	radius := 2500.0

	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		inside := Destination(center, bearing, radius-0.5)
		outside := Destination(center, bearing, radius+0.5)

		assert.True(t, PointInCircle(inside, center, radius), "bearing %v just inside", bearing)
		assert.False(t, PointInCircle(outside, center, radius), "bearing %v just outside", bearing)
	}

	assert.True(t, PointInCircle(center, center, radius))
}

func TestPointInPolygon_InsideAndOutside(t *testing.T) {
	center := NewPoint(28.70, 77.10)
	ring := square(center, 0.05)

	t.Run("interior points", func(t *testing.T) {
		for _, d := range []float64{-0.04, -0.02, 0, 0.02, 0.04} {
			assert.True(t, PointInPolygon(NewPoint(center.Lat+d, center.Lng-d), ring), "offset %v", d)
			assert.True(t, PointInPolygon(NewPoint(center.Lat+d, center.Lng+d/2), ring), "offset %v", d)
		}
	})

	t.Run("points far outside the bounding box", func(t *testing.T) {
		outside := []Point{
			NewPoint(28.80, 77.10),
			NewPoint(28.60, 77.10),
			NewPoint(28.70, 77.20),
			NewPoint(28.70, 77.00),
			NewPoint(28.80, 77.20),
			NewPoint(-28.70, -77.10),
		}
		for _, p := range outside {
			assert.False(t, PointInPolygon(p, ring), "point %s", p)
		}
	})

	t.Run("ray through a vertex longitude", func(t *testing.T) {
		assert.True(t, PointInPolygon(NewPoint(center.Lat, center.Lng-0.05+1e-6), ring))
		assert.False(t, PointInPolygon(NewPoint(center.Lat+0.1, center.Lng-0.05), ring))
	})
}

func TestPointInPolygon_Concave(t *testing.T) {
	// L-shaped ring: the notch in the upper right is outside
	ring := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 2},
		{Lat: 1, Lng: 2},
		{Lat: 1, Lng: 1},
		{Lat: 2, Lng: 1},
		{Lat: 2, Lng: 0},
		{Lat: 0, Lng: 0},
	}

	assert.True(t, PointInPolygon(NewPoint(0.5, 0.5), ring))
	assert.True(t, PointInPolygon(NewPoint(0.5, 1.5), ring))
	assert.True(t, PointInPolygon(NewPoint(1.5, 0.5), ring))
	assert.False(t, PointInPolygon(NewPoint(1.5, 1.5), ring))
}

func TestPointInPolygon_Deterministic(t *testing.T) {
	ring := square(NewPoint(12.97, 77.59), 0.01)
	p := NewPoint(12.975, 77.585)
	first := PointInPolygon(p, ring)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, PointInPolygon(p, ring))
	}
}

func TestPolygonArea(t *testing.T) {
	ring := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 1, Lng: 1},
		{Lat: 1, Lng: 0},
		{Lat: 0, Lng: 0},
	}
	expected := EarthRadiusMeters * EarthRadiusMeters * degreesToRadians(1) * math.Sin(degreesToRadians(1))

	assert.InEpsilon(t, expected, PolygonArea(ring), 0.01)

	small := square(NewPoint(28.70, 77.10), 0.01)
	large := square(NewPoint(28.70, 77.10), 0.05)
	assert.Less(t, PolygonArea(small), PolygonArea(large))
}

func TestValidateRing(t *testing.T) {
	tests := []struct {
		name    string
		ring    []Point
		wantErr error
	}{
		{
			name:    "valid square",
			ring:    square(NewPoint(28.70, 77.10), 0.05),
			wantErr: nil,
		},
		{
			name:    "open ring",
			ring:    square(NewPoint(28.70, 77.10), 0.05)[:4],
			wantErr: ErrRingNotClosed,
		},
		{
			name:    "too few distinct vertices",
			ring:    []Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0}, {Lat: 0, Lng: 0}},
			wantErr: ErrTooFewVertices,
		},
		{
			name:    "bowtie",
			ring:    []Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 0}},
			wantErr: ErrSelfIntersecting,
		},
		{
			name:    "antimeridian",
			ring:    []Point{{Lat: 0, Lng: 179}, {Lat: 0, Lng: -179}, {Lat: 1, Lng: -179}, {Lat: 1, Lng: 179}, {Lat: 0, Lng: 179}},
			wantErr: ErrAntimeridianSpan,
		},
		{
			name:    "latitude out of range",
			ring:    []Point{{Lat: 91, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 91, Lng: 0}},
			wantErr: ErrCoordinateOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRing(tt.ring)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateCircle(t *testing.T) {
	assert.NoError(t, ValidateCircle(NewPoint(28.70, 77.10), 100))
	assert.ErrorIs(t, ValidateCircle(NewPoint(28.70, 77.10), 0), ErrNonPositiveRadius)
	assert.ErrorIs(t, ValidateCircle(NewPoint(28.70, 77.10), -5), ErrNonPositiveRadius)
	assert.ErrorIs(t, ValidateCircle(NewPoint(100, 77.10), 10), ErrCoordinateOutOfRange)
}

func TestPoint_JSON(t *testing.T) {
	data, err := json.Marshal(NewPoint(28.7, 77.1))
	require.NoError(t, err)
	assert.JSONEq(t, `[28.7, 77.1]`, string(data))

	var p Point
	require.NoError(t, json.Unmarshal([]byte(`[12.5, 80.25]`), &p))
	assert.Equal(t, NewPoint(12.5, 80.25), p)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"lat": 1}`), &p))
}
