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

// BaseLocationStore is a map-backed BaseLocationRepository. Like the
// PostgreSQL schema it allows at most one default per service type.
type BaseLocationStore struct {
	mu        sync.RWMutex
	locations map[string]entities.BaseLocation
}

var _ repositories.BaseLocationRepository = (*BaseLocationStore)(nil)

// NewBaseLocationStore creates a store seeded with the given hubs
func NewBaseLocationStore(seed ...*entities.BaseLocation) *BaseLocationStore {
	s := &BaseLocationStore{locations: make(map[string]entities.BaseLocation, len(seed))}
	for _, b := range seed {
		s.locations[b.ID] = *b
	}
	return s
}

func (s *BaseLocationStore) Create(ctx context.Context, location *entities.BaseLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.locations[location.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("base location %s conflicts with an existing record", location.ID))
	}
	if location.IsDefault && s.hasOtherDefault(location.ServiceType, location.ID) {
		return apperrors.NewConflictError("another default base location exists for this service type")
	}
	s.locations[location.ID] = *location
	return nil
}

func (s *BaseLocationStore) GetByID(ctx context.Context, id string) (*entities.BaseLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.locations[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", id))
	}
	return &b, nil
}

func (s *BaseLocationStore) Update(ctx context.Context, location *entities.BaseLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.locations[location.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", location.ID))
	}
	if location.IsDefault && s.hasOtherDefault(location.ServiceType, location.ID) {
		return apperrors.NewConflictError("another default base location exists for this service type")
	}
	updated := *location
	updated.CreatedAt = existing.CreatedAt
	s.locations[location.ID] = updated
	return nil
}

func (s *BaseLocationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", id))
	}
	delete(s.locations, id)
	return nil
}

func (s *BaseLocationStore) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*entities.BaseLocation{}
	for _, b := range s.locations {
		if b.ServiceType != serviceType {
			continue
		}
		c := b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateDefault stores the hub and clears every other default of its
// service type under one lock
func (s *BaseLocationStore) CreateDefault(ctx context.Context, location *entities.BaseLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.locations[location.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("base location %s conflicts with an existing record", location.ID))
	}
	s.clearDefault(location.ServiceType, location.ID)
	s.locations[location.ID] = *location
	return nil
}

// UpdateDefault replaces the hub and clears every other default of its
// service type under one lock
func (s *BaseLocationStore) UpdateDefault(ctx context.Context, location *entities.BaseLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.locations[location.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", location.ID))
	}
	s.clearDefault(location.ServiceType, location.ID)
	updated := *location
	updated.CreatedAt = existing.CreatedAt
	s.locations[location.ID] = updated
	return nil
}

func (s *BaseLocationStore) clearDefault(serviceType entities.ServiceType, exceptID string) {
	for id, b := range s.locations {
		if b.ServiceType == serviceType && b.IsDefault && id != exceptID {
			b.IsDefault = false
			s.locations[id] = b
		}
	}
}

func (s *BaseLocationStore) hasOtherDefault(serviceType entities.ServiceType, id string) bool {
	for otherID, b := range s.locations {
		if otherID != id && b.ServiceType == serviceType && b.IsDefault {
			return true
		}
	}
	return false
}
