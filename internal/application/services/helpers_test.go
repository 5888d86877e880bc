package services_test

import (
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/memory"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/application/services"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

var (
	delhi = geo.NewPoint(28.70, 77.10)
	// Monday 2 March 2026, 12:00 in Asia/Kolkata
	mondayNoon = time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	kolkata    = mustLocation("Asia/Kolkata")
)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

// squareGeofence builds a delivery polygon of half-width d degrees around center
func squareGeofence(id string, center geo.Point, d float64, priority int, storeID string) *entities.Geofence {
	return &entities.Geofence{
		ID:          id,
		Name:        id,
		ServiceType: entities.ServiceTypeDelivery,
		ShapeType:   entities.ShapeTypePolygon,
		Polygon: []geo.Point{
			geo.NewPoint(center.Lat-d, center.Lng-d),
			geo.NewPoint(center.Lat+d, center.Lng-d),
			geo.NewPoint(center.Lat+d, center.Lng+d),
			geo.NewPoint(center.Lat-d, center.Lng+d),
			geo.NewPoint(center.Lat-d, center.Lng-d),
		},
		Priority:  priority,
		IsActive:  true,
		Partner:   entities.PartnerRef{StoreID: storeID},
		UpdatedAt: mondayNoon,
	}
}

func circleGeofence(id string, center geo.Point, radius float64, priority int, storeID string) *entities.Geofence {
	c := center
	return &entities.Geofence{
		ID:           id,
		Name:         id,
		ServiceType:  entities.ServiceTypeDelivery,
		ShapeType:    entities.ShapeTypeCircle,
		CircleCenter: &c,
		RadiusMeters: radius,
		Priority:     priority,
		IsActive:     true,
		Partner:      entities.PartnerRef{StoreID: storeID},
		UpdatedAt:    mondayNoon,
	}
}

func hub(id string, at geo.Point, baseFare, baseKm, perKm float64) *entities.BaseLocation {
	return &entities.BaseLocation{
		ID:          id,
		Name:        id,
		ServiceType: entities.ServiceTypeDelivery,
		BaseLat:     at.Lat,
		BaseLng:     at.Lng,
		BaseFare:    baseFare,
		BaseKm:      baseKm,
		PerKmFee:    perKm,
		Priority:    5,
		IsActive:    true,
		UpdatedAt:   mondayNoon,
	}
}

func snapshotOf(geofences []*entities.Geofence, hubs []*entities.BaseLocation) *entities.CatalogSnapshot {
	return entities.NewCatalogSnapshot(entities.ServiceTypeDelivery, geofences, hubs, mondayNoon, kolkata)
}

type engine struct {
	catalog  *services.CatalogService
	capacity providers.CapacityCounter
	service  *services.ServiceabilityService
}

func newEngine(geofences []*entities.Geofence, hubs []*entities.BaseLocation, opts services.ServiceabilityOptions) *engine {
	return newEngineWithCounter(geofences, hubs, memory.NewCapacityCounter(), opts)
}

func newEngineWithCounter(geofences []*entities.Geofence, hubs []*entities.BaseLocation, capacity providers.CapacityCounter, opts services.ServiceabilityOptions) *engine {
	catalog := services.NewCatalogService(
		memory.NewGeofenceStore(geofences...),
		memory.NewBaseLocationStore(hubs...),
		kolkata,
	)
	if opts.Now == nil {
		opts.Now = func() time.Time { return mondayNoon }
	}
	return &engine{
		catalog:  catalog,
		capacity: capacity,
		service: services.NewServiceabilityService(
			catalog,
			services.NewGeofenceResolver(capacity),
			services.NewBaseLocationResolver(2, 1),
			capacity,
			opts,
		),
	}
}

func deliveryQuery(p geo.Point) *entities.ServiceabilityQuery {
	return &entities.ServiceabilityQuery{Point: &p, ServiceType: entities.ServiceTypeDelivery}
}
