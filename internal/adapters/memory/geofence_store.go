// Package memory holds in-process stores used for fixtures, local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

// GeofenceStore is a map-backed GeofenceRepository
type GeofenceStore struct {
	mu        sync.RWMutex
	geofences map[string]entities.Geofence
}

var _ repositories.GeofenceRepository = (*GeofenceStore)(nil)

// NewGeofenceStore creates a store seeded with the given geofences
func NewGeofenceStore(seed ...*entities.Geofence) *GeofenceStore {
	s := &GeofenceStore{geofences: make(map[string]entities.Geofence, len(seed))}
	for _, g := range seed {
		s.geofences[g.ID] = g.Clone()
	}
	return s
}

func (s *GeofenceStore) Create(ctx context.Context, geofence *entities.Geofence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.geofences[geofence.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("geofence with id %s already exists", geofence.ID))
	}
	s.geofences[geofence.ID] = geofence.Clone()
	return nil
}

func (s *GeofenceStore) GetByID(ctx context.Context, id string) (*entities.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.geofences[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", id))
	}
	out := g.Clone()
	return &out, nil
}

func (s *GeofenceStore) Update(ctx context.Context, geofence *entities.Geofence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.geofences[geofence.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", geofence.ID))
	}
	updated := geofence.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.geofences[geofence.ID] = updated
	return nil
}

func (s *GeofenceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.geofences[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", id))
	}
	delete(s.geofences, id)
	return nil
}

func (s *GeofenceStore) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*entities.Geofence{}
	for _, g := range s.geofences {
		if g.ServiceType != serviceType {
			continue
		}
		c := g.Clone()
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
