// Package fixtures reads authored catalogs from YAML files.
package fixtures

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// Catalog is a validated set of authored records
type Catalog struct {
	Geofences     []*entities.Geofence
	BaseLocations []*entities.BaseLocation
}

type catalogFile struct {
	Geofences     []geofenceFixture     `yaml:"geofences"`
	BaseLocations []baseLocationFixture `yaml:"base_locations"`
}

type geofenceFixture struct {
	ID             string                `yaml:"id"`
	Name           string                `yaml:"name"`
	ServiceType    string                `yaml:"service_type"`
	ShapeType      string                `yaml:"shape_type"`
	Polygon        [][]float64           `yaml:"polygon"`
	CircleCenter   []float64             `yaml:"circle_center"`
	RadiusMeters   float64               `yaml:"radius_meters"`
	Priority       int                   `yaml:"priority"`
	IsActive       *bool                 `yaml:"is_active"`
	CapacityPerDay *int                  `yaml:"capacity_per_day"`
	MinOrderValue  *float64              `yaml:"min_order_value"`
	Fee            *float64              `yaml:"fee"`
	Timezone       string                `yaml:"timezone"`
	WorkingHours   entities.WorkingHours `yaml:"working_hours"`
	Partner        entities.PartnerRef   `yaml:"partner_ref"`
}

type baseLocationFixture struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	ServiceType string  `yaml:"service_type"`
	BaseLat     float64 `yaml:"base_lat"`
	BaseLng     float64 `yaml:"base_lng"`
	BaseFare    float64 `yaml:"base_fare"`
	BaseKm      float64 `yaml:"base_km"`
	PerKmFee    float64 `yaml:"per_km_fee"`
	Priority    int     `yaml:"priority"`
	IsActive    *bool   `yaml:"is_active"`
	IsDefault   bool    `yaml:"is_default"`
}

// LoadFile reads and validates a catalog fixture file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	return Parse(data, time.Now().UTC())
}

// Parse decodes a catalog fixture. Every record is validated the same way
// the authoring API validates it; loadedAt stamps created/updated times.
func Parse(data []byte, loadedAt time.Time) (*Catalog, error) {
	var file catalogFile
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	catalog := &Catalog{}
	seen := make(map[string]bool)
	defaults := make(map[entities.ServiceType]string)

	for i, f := range file.Geofences {
		g, err := f.toEntity(loadedAt)
		if err != nil {
			return nil, fmt.Errorf("geofence %d (%s): %w", i, f.ID, err)
		}
		if seen["g:"+g.ID] {
			return nil, fmt.Errorf("geofence %d: duplicate id %s", i, g.ID)
		}
		seen["g:"+g.ID] = true
		catalog.Geofences = append(catalog.Geofences, g)
	}

	for i, f := range file.BaseLocations {
		b := f.toEntity(loadedAt)
		if b.ID == "" {
			return nil, fmt.Errorf("base location %d: id is required", i)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("base location %d (%s): %w", i, b.ID, err)
		}
		if seen["b:"+b.ID] {
			return nil, fmt.Errorf("base location %d: duplicate id %s", i, b.ID)
		}
		seen["b:"+b.ID] = true
		if b.IsDefault {
			if other, ok := defaults[b.ServiceType]; ok {
				return nil, fmt.Errorf("base location %s: %s is already the default for %s", b.ID, other, b.ServiceType)
			}
			defaults[b.ServiceType] = b.ID
		}
		catalog.BaseLocations = append(catalog.BaseLocations, b)
	}

	return catalog, nil
}

func (f geofenceFixture) toEntity(loadedAt time.Time) (*entities.Geofence, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	g := &entities.Geofence{
		ID:             f.ID,
		Name:           f.Name,
		ServiceType:    entities.ServiceType(f.ServiceType),
		ShapeType:      entities.ShapeType(f.ShapeType),
		RadiusMeters:   f.RadiusMeters,
		Priority:       f.Priority,
		IsActive:       f.IsActive == nil || *f.IsActive,
		CapacityPerDay: f.CapacityPerDay,
		MinOrderValue:  f.MinOrderValue,
		Fee:            f.Fee,
		Timezone:       f.Timezone,
		WorkingHours:   f.WorkingHours,
		Partner:        f.Partner,
		CreatedAt:      loadedAt,
		UpdatedAt:      loadedAt,
	}

	for _, pair := range f.Polygon {
		p, err := toPoint(pair)
		if err != nil {
			return nil, err
		}
		g.Polygon = append(g.Polygon, p)
	}
	if f.CircleCenter != nil {
		c, err := toPoint(f.CircleCenter)
		if err != nil {
			return nil, err
		}
		g.CircleCenter = &c
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (f baseLocationFixture) toEntity(loadedAt time.Time) *entities.BaseLocation {
	return &entities.BaseLocation{
		ID:          f.ID,
		Name:        f.Name,
		ServiceType: entities.ServiceType(f.ServiceType),
		BaseLat:     f.BaseLat,
		BaseLng:     f.BaseLng,
		BaseFare:    f.BaseFare,
		BaseKm:      f.BaseKm,
		PerKmFee:    f.PerKmFee,
		Priority:    f.Priority,
		IsActive:    f.IsActive == nil || *f.IsActive,
		IsDefault:   f.IsDefault,
		CreatedAt:   loadedAt,
		UpdatedAt:   loadedAt,
	}
}

func toPoint(pair []float64) (geo.Point, error) {
	if len(pair) != 2 {
		return geo.Point{}, fmt.Errorf("coordinate must be a [lat, lng] pair, got %d values", len(pair))
	}
	return geo.NewPoint(pair[0], pair[1]), nil
}
