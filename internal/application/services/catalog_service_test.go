package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/memory"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/application/services"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
	"github.com/manipurdigital/hidak-health-hub-sub002/tests/mocks"
)

func TestCatalogService_Snapshot(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	lab := circleGeofence("lab", delhi, 1000, 1, "")
	lab.ServiceType = entities.ServiceTypeLabCollection
	lab.Partner = entities.PartnerRef{CenterID: "C1"}
	catalog := services.NewCatalogService(
		memory.NewGeofenceStore(gf, lab),
		memory.NewBaseLocationStore(hub("H", delhi, 1, 1, 1)),
		kolkata,
		services.WithCatalogClock(func() time.Time { return mondayNoon }),
	)

	snapshot, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)

	require.NoError(t, err)
	assert.Equal(t, entities.ServiceTypeDelivery, snapshot.ServiceType())
	require.Len(t, snapshot.Geofences(), 1)
	assert.Equal(t, "gf", snapshot.Geofences()[0].ID)
	assert.Len(t, snapshot.BaseLocations(), 1)
	assert.Equal(t, mondayNoon, snapshot.FetchedAt())

	again, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version(), again.Version())
}

func TestCatalogService_Snapshot_UnknownServiceType(t *testing.T) {
	catalog := services.NewCatalogService(memory.NewGeofenceStore(), memory.NewBaseLocationStore(), kolkata)

	_, err := catalog.Snapshot(context.Background(), "courier")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCatalogService_SnapshotIsolatedFromStore(t *testing.T) {
	store := memory.NewGeofenceStore(squareGeofence("gf", delhi, 0.05, 1, "S1"))
	catalog := services.NewCatalogService(store, memory.NewBaseLocationStore(), kolkata)
	ctx := context.Background()

	before, err := catalog.Snapshot(ctx, entities.ServiceTypeDelivery)
	require.NoError(t, err)

	updated := squareGeofence("gf", delhi, 0.05, 1, "S1")
	updated.IsActive = false
	updated.UpdatedAt = mondayNoon.Add(time.Minute)
	require.NoError(t, store.Update(ctx, updated))

	after, err := catalog.Snapshot(ctx, entities.ServiceTypeDelivery)
	require.NoError(t, err)

	assert.True(t, before.Geofences()[0].IsActive)
	assert.False(t, after.Geofences()[0].IsActive)
	assert.NotEqual(t, before.Version(), after.Version())
}

func TestCatalogService_ActiveFilters(t *testing.T) {
	open := squareGeofence("open", delhi, 0.05, 1, "S1")
	closed := squareGeofence("closed", delhi, 0.05, 1, "S2")
	closed.WorkingHours = entities.WorkingHours{
		"sunday": {Enabled: true, Intervals: []entities.TimeInterval{{Start: "00:00", End: "24:00"}}},
	}
	offHub := hub("off", delhi, 1, 1, 1)
	offHub.IsActive = false
	catalog := services.NewCatalogService(
		memory.NewGeofenceStore(open, closed),
		memory.NewBaseLocationStore(hub("on", delhi, 1, 1, 1), offHub),
		kolkata,
	)
	ctx := context.Background()

	geofences, err := catalog.ActiveGeofences(ctx, entities.ServiceTypeDelivery, mondayNoon)
	require.NoError(t, err)
	require.Len(t, geofences, 1)
	assert.Equal(t, "open", geofences[0].ID)

	hubs, err := catalog.ActiveBaseLocations(ctx, entities.ServiceTypeDelivery)
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, "on", hubs[0].ID)
}

func TestCatalogService_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCacheProvider(t)
	geofenceRepo := mocks.NewMockGeofenceRepository(t)
	baseRepo := mocks.NewMockBaseLocationRepository(t)

	cached, err := json.Marshal(map[string]interface{}{
		"geofences":      []*entities.Geofence{squareGeofence("cached", delhi, 0.05, 1, "S1")},
		"base_locations": []*entities.BaseLocation{},
		"fetched_at":     mondayNoon,
	})
	require.NoError(t, err)
	cache.On("Get", mock.Anything, "catalog:snapshot:delivery").Return(cached, true, nil).Once()

	catalog := services.NewCatalogService(geofenceRepo, baseRepo, kolkata, services.WithSnapshotCache(cache, 30*time.Second))

	snapshot, err := catalog.Snapshot(ctx, entities.ServiceTypeDelivery)

	require.NoError(t, err)
	require.Len(t, snapshot.Geofences(), 1)
	assert.Equal(t, "cached", snapshot.Geofences()[0].ID)
	assert.Len(t, snapshot.Geofences()[0].Polygon, 5)
}

func TestCatalogService_CacheMissLoadsAndStores(t *testing.T) {
	ctx := context.Background()
	cache := mocks.NewMockCacheProvider(t)
	geofenceRepo := mocks.NewMockGeofenceRepository(t)
	baseRepo := mocks.NewMockBaseLocationRepository(t)

	cache.On("Get", mock.Anything, "catalog:snapshot:delivery").Return(nil, false, nil)
	cache.On("Set", mock.Anything, "catalog:snapshot:delivery", mock.AnythingOfType("[]uint8"), 30*time.Second).Return(nil)
	geofenceRepo.On("ListByServiceType", mock.Anything, entities.ServiceTypeDelivery).
		Return([]*entities.Geofence{squareGeofence("gf", delhi, 0.05, 1, "S1")}, nil)
	baseRepo.On("ListByServiceType", mock.Anything, entities.ServiceTypeDelivery).
		Return([]*entities.BaseLocation{}, nil)

	catalog := services.NewCatalogService(geofenceRepo, baseRepo, kolkata, services.WithSnapshotCache(cache, 30*time.Second))

	snapshot, err := catalog.Snapshot(ctx, entities.ServiceTypeDelivery)

	require.NoError(t, err)
	assert.Len(t, snapshot.Geofences(), 1)
}

func TestCatalogService_CacheErrorFallsBackToStore(t *testing.T) {
	cache := mocks.NewMockCacheProvider(t)
	cache.On("Get", mock.Anything, "catalog:snapshot:delivery").Return(nil, false, errors.New("connection refused"))
	cache.On("Set", mock.Anything, "catalog:snapshot:delivery", mock.Anything, time.Minute).Return(errors.New("connection refused"))

	catalog := services.NewCatalogService(
		memory.NewGeofenceStore(squareGeofence("gf", delhi, 0.05, 1, "S1")),
		memory.NewBaseLocationStore(),
		kolkata,
		services.WithSnapshotCache(cache, time.Minute),
	)

	snapshot, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)

	require.NoError(t, err)
	assert.Len(t, snapshot.Geofences(), 1)
}

func TestCatalogService_Invalidate(t *testing.T) {
	cache := mocks.NewMockCacheProvider(t)
	cache.On("Delete", mock.Anything, "catalog:snapshot:lab_collection").Return(nil)
	catalog := services.NewCatalogService(memory.NewGeofenceStore(), memory.NewBaseLocationStore(), kolkata,
		services.WithSnapshotCache(cache, time.Minute))

	require.NoError(t, catalog.Invalidate(context.Background(), entities.ServiceTypeLabCollection))
}

func TestCatalogService_ConcurrentSnapshots(t *testing.T) {
	catalog := services.NewCatalogService(
		memory.NewGeofenceStore(squareGeofence("gf", delhi, 0.05, 1, "S1")),
		memory.NewBaseLocationStore(),
		kolkata,
	)

	var wg sync.WaitGroup
	versions := make([]string, 16)
	for i := range versions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)
			if assert.NoError(t, err) {
				versions[i] = snapshot.Version()
			}
		}(i)
	}
	wg.Wait()

	for _, v := range versions {
		assert.Equal(t, versions[0], v)
	}
}

// gatedGeofenceRepo blocks ListByServiceType until released or until the
// load context ends
type gatedGeofenceRepo struct {
	*memory.GeofenceStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	loads   int
}

func newGatedGeofenceRepo(seed ...*entities.Geofence) *gatedGeofenceRepo {
	return &gatedGeofenceRepo{
		GeofenceStore: memory.NewGeofenceStore(seed...),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (r *gatedGeofenceRepo) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error) {
	r.mu.Lock()
	r.loads++
	r.mu.Unlock()
	r.once.Do(func() { close(r.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}
	return r.GeofenceStore.ListByServiceType(ctx, serviceType)
}

func (r *gatedGeofenceRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func TestCatalogService_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	repo := newGatedGeofenceRepo(squareGeofence("gf", delhi, 0.05, 1, "S1"))
	catalog := services.NewCatalogService(repo, memory.NewBaseLocationStore(), kolkata)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := catalog.Snapshot(ctxA, entities.ServiceTypeDelivery)
		errA <- err
	}()

	<-repo.started
	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	type result struct {
		snapshot *entities.CatalogSnapshot
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		snapshot, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)
		resB <- result{snapshot, err}
	}()

	close(repo.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		require.Len(t, res.snapshot.Geofences(), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	assert.Equal(t, 1, repo.loadCount())
}

func TestCatalogService_SharedLoadHasOwnTimeout(t *testing.T) {
	repo := newGatedGeofenceRepo()
	catalog := services.NewCatalogService(repo, memory.NewBaseLocationStore(), kolkata,
		services.WithCatalogLoadTimeout(20*time.Millisecond))

	_, err := catalog.Snapshot(context.Background(), entities.ServiceTypeDelivery)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
