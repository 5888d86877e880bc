package fixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

var loadedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestParse_ValidCatalog(t *testing.T) {
	data := []byte(`
geofences:
  - id: gf-1
    name: Square
    service_type: delivery
    shape_type: polygon
    polygon: [[0, 0], [0, 1], [1, 1], [1, 0], [0, 0]]
    priority: 4
    partner_ref: {store_id: s1}
  - id: gf-2
    name: Circle
    service_type: lab_collection
    shape_type: circle
    circle_center: [12.9, 77.6]
    radius_meters: 1500
    priority: 2
    is_active: false
    working_hours:
      saturday: {enabled: true, intervals: [{start: "08:00", end: "12:00"}]}
    partner_ref: {center_id: c1}
base_locations:
  - id: hub-1
    name: Hub
    service_type: delivery
    base_lat: 0.5
    base_lng: 0.5
    base_fare: 20
    base_km: 5
    per_km_fee: 5
    priority: 1
    is_default: true
`)

	catalog, err := Parse(data, loadedAt)
	require.NoError(t, err)
	require.Len(t, catalog.Geofences, 2)
	require.Len(t, catalog.BaseLocations, 1)

	square := catalog.Geofences[0]
	assert.Equal(t, entities.ShapeTypePolygon, square.ShapeType)
	assert.Len(t, square.Polygon, 5)
	assert.True(t, square.IsActive)
	assert.Equal(t, "s1", square.Partner.StoreID)
	assert.Equal(t, loadedAt, square.CreatedAt)

	circle := catalog.Geofences[1]
	require.NotNil(t, circle.CircleCenter)
	assert.InDelta(t, 12.9, circle.CircleCenter.Lat, 1e-9)
	assert.False(t, circle.IsActive)
	assert.True(t, circle.WorkingHours["saturday"].Enabled)

	hub := catalog.BaseLocations[0]
	assert.True(t, hub.IsDefault)
	assert.True(t, hub.IsActive)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "open ring",
			data: `
geofences:
  - id: gf-1
    name: Open
    service_type: delivery
    shape_type: polygon
    polygon: [[0, 0], [0, 1], [1, 1], [1, 0]]
    priority: 4
    partner_ref: {store_id: s1}
`,
		},
		{
			name: "partner does not match service",
			data: `
geofences:
  - id: gf-1
    name: Circle
    service_type: delivery
    shape_type: circle
    circle_center: [1, 1]
    radius_meters: 10
    priority: 4
    partner_ref: {center_id: c1}
`,
		},
		{
			name: "two defaults",
			data: `
base_locations:
  - {id: a, name: A, service_type: delivery, base_lat: 1, base_lng: 1, priority: 1, is_default: true}
  - {id: b, name: B, service_type: delivery, base_lat: 2, base_lng: 2, priority: 1, is_default: true}
`,
		},
		{
			name: "duplicate geofence id",
			data: `
geofences:
  - {id: gf-1, name: A, service_type: delivery, shape_type: circle, circle_center: [1, 1], radius_meters: 10, priority: 1, partner_ref: {store_id: s}}
  - {id: gf-1, name: B, service_type: delivery, shape_type: circle, circle_center: [1, 1], radius_meters: 10, priority: 1, partner_ref: {store_id: s}}
`,
		},
		{
			name: "bad coordinate pair",
			data: `
geofences:
  - {id: gf-1, name: A, service_type: delivery, shape_type: circle, circle_center: [1], radius_meters: 10, priority: 1, partner_ref: {store_id: s}}
`,
		},
		{
			name: "unknown field",
			data: `
base_locations:
  - {id: a, name: A, service_type: delivery, base_lat: 1, base_lng: 1, priority: 1, colour: red}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), loadedAt)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_SampleCatalog(t *testing.T) {
	catalog, err := LoadFile("../../../fixtures/catalog.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, catalog.Geofences)
	assert.NotEmpty(t, catalog.BaseLocations)
}
