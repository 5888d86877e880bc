package services_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/application/services"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
	"github.com/manipurdigital/hidak-health-hub-sub002/tests/mocks"
)

func TestServiceabilityService_Check_HigherPriorityWins(t *testing.T) {
	p1 := squareGeofence("P1", delhi, 0.05, 3, "S1")
	p2 := squareGeofence("P2", delhi, 0.02, 7, "S2")
	e := newEngine([]*entities.Geofence{p1, p2}, nil, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.True(t, result.IsServiceable)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, entities.AssignmentKindGeofence, result.Assignment.Kind)
	assert.Equal(t, "P2", result.Assignment.GeofenceID)
	assert.Equal(t, "S2", result.Assignment.PartnerRef.StoreID)
	assert.Nil(t, result.Reason)
	assert.NotEmpty(t, result.CatalogVersion)
}

func TestServiceabilityService_Check_PriorityBeatsArea(t *testing.T) {
	// the larger shape has the higher priority and must still win
	big := squareGeofence("big", delhi, 0.08, 9, "S-big")
	small := squareGeofence("small", delhi, 0.01, 2, "S-small")
	e := newEngine([]*entities.Geofence{big, small}, nil, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.Equal(t, "big", result.Assignment.GeofenceID)
}

func TestServiceabilityService_Check_TieBreakers(t *testing.T) {
	t.Run("smaller area wins on equal priority", func(t *testing.T) {
		wide := squareGeofence("a-wide", delhi, 0.05, 5, "S1")
		tight := squareGeofence("z-tight", delhi, 0.01, 5, "S2")
		e := newEngine([]*entities.Geofence{wide, tight}, nil, services.ServiceabilityOptions{})

		result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

		require.NoError(t, err)
		assert.Equal(t, "z-tight", result.Assignment.GeofenceID)
	})

	t.Run("smaller id wins on equal priority and area", func(t *testing.T) {
		b := circleGeofence("gf-b", delhi, 2000, 5, "S1")
		a := circleGeofence("gf-a", delhi, 2000, 5, "S2")
		e := newEngine([]*entities.Geofence{b, a}, nil, services.ServiceabilityOptions{})

		result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

		require.NoError(t, err)
		assert.Equal(t, "gf-a", result.Assignment.GeofenceID)
	})
}

func TestServiceabilityService_Check_HubFallbackFee(t *testing.T) {
	far := geo.Destination(delhi, 0, 50000)
	gf := squareGeofence("gf-far", far, 0.01, 5, "S1")
	hubPoint := geo.Destination(delhi, 90, 6000)
	h1 := hub("H1", hubPoint, 20, 5, 5)
	e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{h1}, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.True(t, result.IsServiceable)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, entities.AssignmentKindBaseLocation, result.Assignment.Kind)
	assert.Equal(t, "H1", result.Assignment.BaseLocationID)
	assert.Equal(t, 25.0, result.Assignment.Fee)
	require.NotNil(t, result.Assignment.DistanceKm)
	assert.InDelta(t, 6.0, *result.Assignment.DistanceKm, 0.001)
}

func TestServiceabilityService_Check_MinOrderValue(t *testing.T) {
	gf := squareGeofence("gf-min", delhi, 0.02, 5, "S1")
	gf.MinOrderValue = floatPtr(500)

	t.Run("falls through to the hub", func(t *testing.T) {
		h := hub("H1", geo.Destination(delhi, 180, 3000), 30, 5, 4)
		e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{h}, services.ServiceabilityOptions{})
		query := deliveryQuery(delhi)
		query.OrderValue = floatPtr(300)

		result, err := e.service.Check(context.Background(), query)

		require.NoError(t, err)
		assert.True(t, result.IsServiceable)
		assert.Equal(t, entities.AssignmentKindBaseLocation, result.Assignment.Kind)
		assert.Equal(t, 30.0, result.Assignment.Fee)
	})

	t.Run("not serviceable without a hub", func(t *testing.T) {
		e := newEngine([]*entities.Geofence{gf}, nil, services.ServiceabilityOptions{})
		query := deliveryQuery(delhi)
		query.OrderValue = floatPtr(300)

		result, err := e.service.Check(context.Background(), query)

		require.NoError(t, err)
		assert.False(t, result.IsServiceable)
		require.NotNil(t, result.Reason)
		assert.Equal(t, entities.ReasonOutsideCoverage, result.Reason.Code)
	})

	t.Run("missing order value passes the gate", func(t *testing.T) {
		e := newEngine([]*entities.Geofence{gf}, nil, services.ServiceabilityOptions{})

		result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

		require.NoError(t, err)
		assert.Equal(t, "gf-min", result.Assignment.GeofenceID)
	})
}

func TestServiceabilityService_Check_WorkingHours(t *testing.T) {
	weekday := entities.DaySchedule{Enabled: true, Intervals: []entities.TimeInterval{{Start: "09:00", End: "18:00"}}}
	gf := squareGeofence("gf-hours", delhi, 0.02, 5, "S1")
	gf.Timezone = "Asia/Kolkata"
	gf.WorkingHours = entities.WorkingHours{
		"monday": weekday, "tuesday": weekday, "wednesday": weekday, "thursday": weekday, "friday": weekday,
	}
	e := newEngine([]*entities.Geofence{gf}, nil, services.ServiceabilityOptions{})

	tests := []struct {
		name        string
		at          time.Time
		serviceable bool
	}{
		{"monday noon", time.Date(2026, 3, 2, 12, 0, 0, 0, kolkata), true},
		{"monday before opening", time.Date(2026, 3, 2, 8, 59, 0, 0, kolkata), false},
		{"monday at closing", time.Date(2026, 3, 2, 18, 0, 0, 0, kolkata), false},
		{"saturday noon", time.Date(2026, 3, 7, 12, 0, 0, 0, kolkata), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := deliveryQuery(delhi)
			query.AtTime = timePtr(tt.at)

			result, err := e.service.Check(context.Background(), query)

			require.NoError(t, err)
			assert.Equal(t, tt.serviceable, result.IsServiceable)
		})
	}
}

func TestServiceabilityService_Check_GeofenceBeatsNearerHub(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	gf.Fee = floatPtr(12)
	h := hub("H-next-door", geo.Destination(delhi, 45, 50), 0, 0, 0)
	e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{h}, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.Equal(t, entities.AssignmentKindGeofence, result.Assignment.Kind)
	assert.Equal(t, 12.0, result.Assignment.Fee)
}

func TestServiceabilityService_Check_NoActiveShapes(t *testing.T) {
	inactive := squareGeofence("gf", delhi, 0.05, 1, "S1")
	inactive.IsActive = false
	closedHub := hub("H", delhi, 10, 1, 1)
	closedHub.IsActive = false

	for name, e := range map[string]*engine{
		"empty catalog":       newEngine(nil, nil, services.ServiceabilityOptions{}),
		"everything inactive": newEngine([]*entities.Geofence{inactive}, []*entities.BaseLocation{closedHub}, services.ServiceabilityOptions{}),
	} {
		t.Run(name, func(t *testing.T) {
			result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

			require.NoError(t, err)
			assert.False(t, result.IsServiceable)
			assert.Nil(t, result.Assignment)
			require.NotNil(t, result.Reason)
			assert.Equal(t, entities.ReasonNoActiveShapes, result.Reason.Code)
		})
	}
}

func TestServiceabilityService_Check_MaxServiceRadius(t *testing.T) {
	h := hub("H", geo.Destination(delhi, 90, 30000), 20, 5, 5)
	e := newEngine(nil, []*entities.BaseLocation{h}, services.ServiceabilityOptions{MaxServiceRadiusKm: 25})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.False(t, result.IsServiceable)
	require.NotNil(t, result.Reason)
	assert.Equal(t, entities.ReasonBeyondServiceRadius, result.Reason.Code)
}

func TestServiceabilityService_Check_SkipsMalformedGeofence(t *testing.T) {
	broken := squareGeofence("broken", delhi, 0.05, 10, "S1")
	broken.Polygon = broken.Polygon[:4]
	good := squareGeofence("good", delhi, 0.05, 1, "S2")
	e := newEngine([]*entities.Geofence{broken, good}, nil, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.Equal(t, "good", result.Assignment.GeofenceID)
}

func TestServiceabilityService_Check_Validation(t *testing.T) {
	e := newEngine(nil, nil, services.ServiceabilityOptions{})
	outOfRange := geo.NewPoint(91, 10)

	tests := []struct {
		name  string
		query *entities.ServiceabilityQuery
	}{
		{"nil query", nil},
		{"missing point", &entities.ServiceabilityQuery{ServiceType: entities.ServiceTypeDelivery}},
		{"unknown service type", &entities.ServiceabilityQuery{Point: &delhi, ServiceType: "pharmacy"}},
		{"coordinates out of range", &entities.ServiceabilityQuery{Point: &outOfRange, ServiceType: entities.ServiceTypeDelivery}},
		{"negative order value", &entities.ServiceabilityQuery{Point: &delhi, ServiceType: entities.ServiceTypeDelivery, OrderValue: floatPtr(-1)}},
		{"NaN order value", &entities.ServiceabilityQuery{Point: &delhi, ServiceType: entities.ServiceTypeDelivery, OrderValue: floatPtr(math.NaN())}},
		{"infinite order value", &entities.ServiceabilityQuery{Point: &delhi, ServiceType: entities.ServiceTypeDelivery, OrderValue: floatPtr(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.service.Check(context.Background(), tt.query)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestServiceabilityService_Check_UpstreamFailureIsUnavailable(t *testing.T) {
	geofenceRepo := mocks.NewMockGeofenceRepository(t)
	baseRepo := mocks.NewMockBaseLocationRepository(t)
	geofenceRepo.On("ListByServiceType", mock.Anything, entities.ServiceTypeDelivery).
		Return(nil, errors.New("connection refused"))

	catalog := services.NewCatalogService(geofenceRepo, baseRepo, kolkata)
	service := services.NewServiceabilityService(catalog,
		services.NewGeofenceResolver(nil),
		services.NewBaseLocationResolver(2, 1),
		nil,
		services.ServiceabilityOptions{},
	)

	result, err := service.Check(context.Background(), deliveryQuery(delhi))

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable), "got %v", err)
}

func TestServiceabilityService_Check_CapacityCounterFailureIsUnavailable(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	gf.CapacityPerDay = intPtr(10)
	counter := mocks.NewMockCapacityCounter(t)
	counter.On("Used", mock.Anything, "gf", "2026-03-02").Return(0, errors.New("redis down"))
	e := newEngineWithCounter([]*entities.Geofence{gf}, nil, counter, services.ServiceabilityOptions{})

	_, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable), "got %v", err)
}

func TestServiceabilityService_Check_CapacityExhausted(t *testing.T) {
	full := squareGeofence("full", delhi, 0.02, 9, "S1")
	full.CapacityPerDay = intPtr(5)
	open := squareGeofence("open", delhi, 0.05, 2, "S2")
	counter := mocks.NewMockCapacityCounter(t)
	counter.On("Used", mock.Anything, "full", "2026-03-02").Return(5, nil)
	e := newEngineWithCounter([]*entities.Geofence{full, open}, nil, counter, services.ServiceabilityOptions{})

	result, err := e.service.Check(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.Equal(t, "open", result.Assignment.GeofenceID)
}

func TestServiceabilityService_Check_Idempotent(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	gf.CapacityPerDay = intPtr(1)
	e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{hub("H", delhi, 10, 1, 1)}, services.ServiceabilityOptions{})
	query := deliveryQuery(delhi)

	first, err := e.service.Check(context.Background(), query)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.service.Check(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	used, err := e.capacity.Used(context.Background(), "gf", "2026-03-02")
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestServiceabilityService_Reserve_ConcurrentLastSlots(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	gf.CapacityPerDay = intPtr(3)
	h := hub("H", geo.Destination(delhi, 0, 2000), 25, 5, 5)
	e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{h}, services.ServiceabilityOptions{})

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	byKind := map[entities.AssignmentKind]int{}
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := e.service.Reserve(context.Background(), deliveryQuery(delhi))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			byKind[result.Assignment.Kind]++
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 3, byKind[entities.AssignmentKindGeofence])
	assert.Equal(t, callers-3, byKind[entities.AssignmentKindBaseLocation])

	used, err := e.capacity.Used(context.Background(), "gf", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 3, used)
}

func TestServiceabilityService_Reserve_LostRaceMovesToNextCandidate(t *testing.T) {
	first := squareGeofence("first", delhi, 0.02, 9, "S1")
	first.CapacityPerDay = intPtr(4)
	second := squareGeofence("second", delhi, 0.05, 3, "S2")
	counter := mocks.NewMockCapacityCounter(t)
	// Used reports a free slot but another request takes it first
	counter.On("Used", mock.Anything, "first", "2026-03-02").Return(3, nil)
	counter.On("TryReserve", mock.Anything, "first", "2026-03-02", 4).Return(false, nil)
	e := newEngineWithCounter([]*entities.Geofence{first, second}, nil, counter, services.ServiceabilityOptions{})

	result, err := e.service.Reserve(context.Background(), deliveryQuery(delhi))

	require.NoError(t, err)
	assert.Equal(t, "second", result.Assignment.GeofenceID)
}

func TestServiceabilityService_Release(t *testing.T) {
	gf := squareGeofence("gf", delhi, 0.05, 1, "S1")
	gf.CapacityPerDay = intPtr(1)
	e := newEngine([]*entities.Geofence{gf}, []*entities.BaseLocation{hub("H", delhi, 10, 1, 1)}, services.ServiceabilityOptions{})
	ctx := context.Background()

	result, err := e.service.Reserve(ctx, deliveryQuery(delhi))
	require.NoError(t, err)
	assert.Equal(t, entities.AssignmentKindGeofence, result.Assignment.Kind)

	result, err = e.service.Reserve(ctx, deliveryQuery(delhi))
	require.NoError(t, err)
	assert.Equal(t, entities.AssignmentKindBaseLocation, result.Assignment.Kind)

	require.NoError(t, e.service.Release(ctx, "gf", entities.ServiceTypeDelivery, mondayNoon))
	require.NoError(t, e.service.Release(ctx, "gf", entities.ServiceTypeDelivery, mondayNoon))

	used, err := e.capacity.Used(ctx, "gf", "2026-03-02")
	require.NoError(t, err)
	assert.Zero(t, used)

	result, err = e.service.Reserve(ctx, deliveryQuery(delhi))
	require.NoError(t, err)
	assert.Equal(t, entities.AssignmentKindGeofence, result.Assignment.Kind)

	err = e.service.Release(ctx, "missing", entities.ServiceTypeDelivery, mondayNoon)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestServiceabilityService_Explain(t *testing.T) {
	winner := squareGeofence("winner", delhi, 0.02, 8, "S1")
	loser := squareGeofence("loser", delhi, 0.05, 2, "S2")
	inactive := squareGeofence("inactive", delhi, 0.05, 10, "S3")
	inactive.IsActive = false
	elsewhere := squareGeofence("elsewhere", geo.Destination(delhi, 0, 40000), 0.01, 10, "S4")
	pricey := squareGeofence("pricey", delhi, 0.05, 10, "S5")
	pricey.MinOrderValue = floatPtr(1000)
	h := hub("H", delhi, 10, 1, 1)

	e := newEngine([]*entities.Geofence{winner, loser, inactive, elsewhere, pricey}, []*entities.BaseLocation{h}, services.ServiceabilityOptions{})
	query := deliveryQuery(delhi)
	query.OrderValue = floatPtr(200)

	explanation, err := e.service.Explain(context.Background(), query)
	require.NoError(t, err)

	reasons := map[string]entities.CandidateReason{}
	for _, c := range explanation.Geofences {
		reasons[c.GeofenceID] = c.Reason
	}
	assert.Equal(t, entities.CandidateSelected, reasons["winner"])
	assert.Equal(t, entities.CandidateOutranked, reasons["loser"])
	assert.Equal(t, entities.CandidateInactive, reasons["inactive"])
	assert.Equal(t, entities.CandidateOutsideShape, reasons["elsewhere"])
	assert.Equal(t, entities.CandidateBelowMinOrder, reasons["pricey"])

	require.Len(t, explanation.BaseLocations, 1)
	assert.Equal(t, entities.CandidateNotConsidered, explanation.BaseLocations[0].Reason)

	checked, err := e.service.Check(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, checked, explanation.Result)
	assert.Equal(t, checked.CatalogVersion, explanation.CatalogVersion)
}
