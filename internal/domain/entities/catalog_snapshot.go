package entities

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// CatalogSnapshot is an immutable view of the geofences and base locations
// for one service type. Values returned from its accessors share backing
// arrays with the snapshot and must not be modified.
type CatalogSnapshot struct {
	serviceType     ServiceType
	version         string
	fetchedAt       time.Time
	geofences       []Geofence
	baseLocations   []BaseLocation
	defaultLocation *time.Location
	locations       map[string]*time.Location
}

// NewCatalogSnapshot copies the records into a snapshot. Records of other
// service types are dropped. defaultLocation is used for geofences without
// their own timezone.
func NewCatalogSnapshot(
	serviceType ServiceType,
	geofences []*Geofence,
	baseLocations []*BaseLocation,
	fetchedAt time.Time,
	defaultLocation *time.Location,
) *CatalogSnapshot {
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}

	s := &CatalogSnapshot{
		serviceType:     serviceType,
		fetchedAt:       fetchedAt,
		defaultLocation: defaultLocation,
		locations:       make(map[string]*time.Location),
	}

	for _, g := range geofences {
		if g == nil || g.ServiceType != serviceType {
			continue
		}
		s.geofences = append(s.geofences, g.Clone())
		if g.Timezone != "" {
			if _, seen := s.locations[g.Timezone]; !seen {
				loc, err := time.LoadLocation(g.Timezone)
				if err != nil {
					loc = defaultLocation
				}
				s.locations[g.Timezone] = loc
			}
		}
	}
	for _, b := range baseLocations {
		if b == nil || b.ServiceType != serviceType {
			continue
		}
		s.baseLocations = append(s.baseLocations, *b)
	}

	sort.Slice(s.geofences, func(i, j int) bool { return s.geofences[i].ID < s.geofences[j].ID })
	sort.Slice(s.baseLocations, func(i, j int) bool { return s.baseLocations[i].ID < s.baseLocations[j].ID })

	s.version = s.computeVersion()
	return s
}

// ServiceType returns the service type the snapshot covers
func (s *CatalogSnapshot) ServiceType() ServiceType { return s.serviceType }

// Version identifies the record set; equal versions mean equal content
func (s *CatalogSnapshot) Version() string { return s.version }

// FetchedAt is when the records were read from the store
func (s *CatalogSnapshot) FetchedAt() time.Time { return s.fetchedAt }

// Geofences returns every geofence, active or not, ordered by id
func (s *CatalogSnapshot) Geofences() []Geofence { return s.geofences }

// BaseLocations returns every base location, active or not, ordered by id
func (s *CatalogSnapshot) BaseLocations() []BaseLocation { return s.baseLocations }

// ActiveGeofences returns geofences that are active and open at atTime
func (s *CatalogSnapshot) ActiveGeofences(atTime time.Time) []Geofence {
	out := make([]Geofence, 0, len(s.geofences))
	for _, g := range s.geofences {
		if g.IsActive && s.IsOpen(&g, atTime) {
			out = append(out, g)
		}
	}
	return out
}

// ActiveBaseLocations returns active base locations; hubs are not time-gated
func (s *CatalogSnapshot) ActiveBaseLocations() []BaseLocation {
	out := make([]BaseLocation, 0, len(s.baseLocations))
	for _, b := range s.baseLocations {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

// HasActiveShapes reports whether any active geofence or hub exists,
// regardless of working hours
func (s *CatalogSnapshot) HasActiveShapes() bool {
	for _, g := range s.geofences {
		if g.IsActive {
			return true
		}
	}
	for _, b := range s.baseLocations {
		if b.IsActive {
			return true
		}
	}
	return false
}

// IsOpen evaluates the geofence's working hours at atTime
func (s *CatalogSnapshot) IsOpen(g *Geofence, atTime time.Time) bool {
	return g.WorkingHours.IsOpenAt(s.LocalTime(g, atTime))
}

// LocalTime converts atTime into the geofence's time zone
func (s *CatalogSnapshot) LocalTime(g *Geofence, atTime time.Time) time.Time {
	if loc, ok := s.locations[g.Timezone]; ok {
		return atTime.In(loc)
	}
	return atTime.In(s.defaultLocation)
}

// CapacityDate is the calendar day, in the geofence's zone, that capacity
// for atTime is counted against
func (s *CatalogSnapshot) CapacityDate(g *Geofence, atTime time.Time) string {
	return s.LocalTime(g, atTime).Format("2006-01-02")
}

func (s *CatalogSnapshot) computeVersion() string {
	h := fnv.New64a()
	buf := make([]byte, 8)
	write := func(id string, updated time.Time, active bool) {
		h.Write([]byte(id))
		binary.BigEndian.PutUint64(buf, uint64(updated.UnixNano()))
		h.Write(buf)
		if active {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	h.Write([]byte(s.serviceType))
	for _, g := range s.geofences {
		write("g:"+g.ID, g.UpdatedAt, g.IsActive)
	}
	for _, b := range s.baseLocations {
		write("b:"+b.ID, b.UpdatedAt, b.IsActive)
	}
	return fmt.Sprintf("%s-%016x", s.serviceType, h.Sum64())
}
