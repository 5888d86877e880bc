package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
)

// MockCapacityCounter is a mock of providers.CapacityCounter
type MockCapacityCounter struct {
	mock.Mock
}

var _ providers.CapacityCounter = (*MockCapacityCounter)(nil)

// NewMockCapacityCounter creates a mock that asserts its expectations on cleanup
func NewMockCapacityCounter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCapacityCounter {
	m := &MockCapacityCounter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCapacityCounter) Used(ctx context.Context, geofenceID, day string) (int, error) {
	args := m.Called(ctx, geofenceID, day)
	return args.Int(0), args.Error(1)
}

func (m *MockCapacityCounter) TryReserve(ctx context.Context, geofenceID, day string, capacity int) (bool, error) {
	args := m.Called(ctx, geofenceID, day, capacity)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapacityCounter) Release(ctx context.Context, geofenceID, day string) error {
	return m.Called(ctx, geofenceID, day).Error(0)
}

// MockCacheProvider is a mock of providers.CacheProvider
type MockCacheProvider struct {
	mock.Mock
}

var _ providers.CacheProvider = (*MockCacheProvider)(nil)

// NewMockCacheProvider creates a mock that asserts its expectations on cleanup
func NewMockCacheProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCacheProvider {
	m := &MockCacheProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockEventBus is a mock of providers.EventBus
type MockEventBus struct {
	mock.Mock
}

var _ providers.EventBus = (*MockEventBus)(nil)

// NewMockEventBus creates a mock that asserts its expectations on cleanup
func NewMockEventBus(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventBus {
	m := &MockEventBus{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.CatalogEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}
