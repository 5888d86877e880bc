package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

// SnapshotProvider hands out immutable catalog views
type SnapshotProvider interface {
	Snapshot(ctx context.Context, serviceType entities.ServiceType) (*entities.CatalogSnapshot, error)
}

// cachedCatalog is the wire form of a snapshot stored in the cache
type cachedCatalog struct {
	Geofences     []*entities.Geofence     `json:"geofences"`
	BaseLocations []*entities.BaseLocation `json:"base_locations"`
	FetchedAt     time.Time                `json:"fetched_at"`
}

// CatalogService reads the authored geofences and base locations for a
// service type and returns them as one snapshot
type CatalogService struct {
	geofences     repositories.GeofenceRepository
	baseLocations repositories.BaseLocationRepository
	location      *time.Location
	cache         providers.CacheProvider
	cacheTTL      time.Duration
	metrics       *observability.Metrics
	now           func() time.Time
	loadTimeout   time.Duration
	group         singleflight.Group
}

const defaultCatalogLoadTimeout = 10 * time.Second

// CatalogOption configures a CatalogService
type CatalogOption func(*CatalogService)

// WithSnapshotCache keeps loaded records in cache for ttl. Snapshots may be
// up to ttl stale unless invalidated.
func WithSnapshotCache(cache providers.CacheProvider, ttl time.Duration) CatalogOption {
	return func(s *CatalogService) {
		if ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

// WithCatalogMetrics records load durations and cache hits
func WithCatalogMetrics(metrics *observability.Metrics) CatalogOption {
	return func(s *CatalogService) { s.metrics = metrics }
}

// WithCatalogLoadTimeout bounds a shared load independently of the callers
// waiting on it
func WithCatalogLoadTimeout(timeout time.Duration) CatalogOption {
	return func(s *CatalogService) {
		if timeout > 0 {
			s.loadTimeout = timeout
		}
	}
}

// WithCatalogClock overrides the clock used to stamp snapshots
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(s *CatalogService) { s.now = now }
}

// NewCatalogService creates a new catalog service. location is the zone for
// geofences that carry no timezone of their own.
func NewCatalogService(
	geofences repositories.GeofenceRepository,
	baseLocations repositories.BaseLocationRepository,
	location *time.Location,
	opts ...CatalogOption,
) *CatalogService {
	s := &CatalogService{
		geofences:     geofences,
		baseLocations: baseLocations,
		location:      location,
		now:           time.Now,
		loadTimeout:   defaultCatalogLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a consistent view of the catalog for the service type.
// Concurrent callers for the same service type share one load. The load
// runs detached from any single caller, so a caller that gives up only
// stops its own wait.
func (s *CatalogService) Snapshot(ctx context.Context, serviceType entities.ServiceType) (*entities.CatalogSnapshot, error) {
	if !serviceType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown service type %q", serviceType))
	}

	ch := s.group.DoChan(string(serviceType), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(loadCtx, serviceType)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.NewUnavailableError("catalog load abandoned", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.CatalogSnapshot), nil
	}
}

// ActiveGeofences returns geofences that are active and open at atTime
func (s *CatalogService) ActiveGeofences(ctx context.Context, serviceType entities.ServiceType, atTime time.Time) ([]entities.Geofence, error) {
	snapshot, err := s.Snapshot(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	return snapshot.ActiveGeofences(atTime), nil
}

// ActiveBaseLocations returns active hubs for the service type
func (s *CatalogService) ActiveBaseLocations(ctx context.Context, serviceType entities.ServiceType) ([]entities.BaseLocation, error) {
	snapshot, err := s.Snapshot(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	return snapshot.ActiveBaseLocations(), nil
}

// Invalidate drops the cached records for a service type
func (s *CatalogService) Invalidate(ctx context.Context, serviceType entities.ServiceType) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, catalogCacheKey(serviceType)); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache for %s: %w", serviceType, err)
	}
	return nil
}

func (s *CatalogService) load(ctx context.Context, serviceType entities.ServiceType) (*entities.CatalogSnapshot, error) {
	ctx, span := observability.StartSpan(ctx, "CatalogService.load")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("service_type", string(serviceType)))

	if cached, ok := s.fromCache(ctx, serviceType); ok {
		return cached, nil
	}

	start := time.Now()
	fetchedAt := s.now()

	geofences, err := s.geofences.ListByServiceType(ctx, serviceType)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewUnavailableError("geofence catalog unavailable", err)
	}
	baseLocations, err := s.baseLocations.ListByServiceType(ctx, serviceType)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewUnavailableError("base location catalog unavailable", err)
	}
	observability.RecordCatalogLoad(ctx, s.metrics, string(serviceType), time.Since(start))

	s.toCache(ctx, serviceType, &cachedCatalog{
		Geofences:     geofences,
		BaseLocations: baseLocations,
		FetchedAt:     fetchedAt,
	})

	return entities.NewCatalogSnapshot(serviceType, geofences, baseLocations, fetchedAt, s.location), nil
}

func (s *CatalogService) fromCache(ctx context.Context, serviceType entities.ServiceType) (*entities.CatalogSnapshot, bool) {
	if s.cache == nil {
		return nil, false
	}
	key := catalogCacheKey(serviceType)
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Catalog cache read failed, loading from store")
	}
	if err != nil || !found || len(data) == 0 {
		observability.RecordCacheMiss(ctx, s.metrics, key)
		return nil, false
	}

	var cached cachedCatalog
	if err := json.Unmarshal(data, &cached); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Discarding unreadable catalog cache entry")
		observability.RecordCacheMiss(ctx, s.metrics, key)
		return nil, false
	}

	observability.RecordCacheHit(ctx, s.metrics, key)
	return entities.NewCatalogSnapshot(serviceType, cached.Geofences, cached.BaseLocations, cached.FetchedAt, s.location), true
}

func (s *CatalogService) toCache(ctx context.Context, serviceType entities.ServiceType, records *cachedCatalog) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to encode catalog for cache")
		return
	}
	if err := s.cache.Set(ctx, catalogCacheKey(serviceType), data, s.cacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("service_type", string(serviceType)).Msg("Failed to cache catalog")
	}
}

func catalogCacheKey(serviceType entities.ServiceType) string {
	return "catalog:snapshot:" + string(serviceType)
}
