// Package mocks holds testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
)

// MockGeofenceRepository is a mock of repositories.GeofenceRepository
type MockGeofenceRepository struct {
	mock.Mock
}

var _ repositories.GeofenceRepository = (*MockGeofenceRepository)(nil)

// NewMockGeofenceRepository creates a mock that asserts its expectations on cleanup
func NewMockGeofenceRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGeofenceRepository {
	m := &MockGeofenceRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGeofenceRepository) Create(ctx context.Context, geofence *entities.Geofence) error {
	return m.Called(ctx, geofence).Error(0)
}

func (m *MockGeofenceRepository) GetByID(ctx context.Context, id string) (*entities.Geofence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Geofence), args.Error(1)
}

func (m *MockGeofenceRepository) Update(ctx context.Context, geofence *entities.Geofence) error {
	return m.Called(ctx, geofence).Error(0)
}

func (m *MockGeofenceRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGeofenceRepository) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error) {
	args := m.Called(ctx, serviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Geofence), args.Error(1)
}

// MockBaseLocationRepository is a mock of repositories.BaseLocationRepository
type MockBaseLocationRepository struct {
	mock.Mock
}

var _ repositories.BaseLocationRepository = (*MockBaseLocationRepository)(nil)

// NewMockBaseLocationRepository creates a mock that asserts its expectations on cleanup
func NewMockBaseLocationRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBaseLocationRepository {
	m := &MockBaseLocationRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBaseLocationRepository) Create(ctx context.Context, location *entities.BaseLocation) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockBaseLocationRepository) GetByID(ctx context.Context, id string) (*entities.BaseLocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BaseLocation), args.Error(1)
}

func (m *MockBaseLocationRepository) Update(ctx context.Context, location *entities.BaseLocation) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockBaseLocationRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBaseLocationRepository) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error) {
	args := m.Called(ctx, serviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BaseLocation), args.Error(1)
}

func (m *MockBaseLocationRepository) CreateDefault(ctx context.Context, location *entities.BaseLocation) error {
	return m.Called(ctx, location).Error(0)
}

func (m *MockBaseLocationRepository) UpdateDefault(ctx context.Context, location *entities.BaseLocation) error {
	return m.Called(ctx, location).Error(0)
}
