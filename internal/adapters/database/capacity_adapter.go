package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

const dailyUsageTable = "geofence_daily_usage"

// reserveSlotQuery takes a slot only while used < capacity. Concurrent
// callers serialize on the row lock, so two requests cannot both take the
// last slot.
const reserveSlotQuery = `
	INSERT INTO geofence_daily_usage (geofence_id, usage_date, used)
	VALUES ($1, $2, 1)
	ON CONFLICT (geofence_id, usage_date)
	DO UPDATE SET used = geofence_daily_usage.used + 1
	WHERE geofence_daily_usage.used < $3
	RETURNING used
`

const releaseSlotQuery = `
	UPDATE geofence_daily_usage SET used = used - 1
	WHERE geofence_id = $1 AND usage_date = $2 AND used > 0
`

// CapacityAdapter implements CapacityCounter with a PostgreSQL row per
// geofence and day
type CapacityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ providers.CapacityCounter = (*CapacityAdapter)(nil)

// NewCapacityAdapter creates a new capacity adapter
func NewCapacityAdapter(client *postgres.Client) *CapacityAdapter {
	return &CapacityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Used returns the slots taken for a geofence on a day
func (a *CapacityAdapter) Used(ctx context.Context, geofenceID, day string) (int, error) {
	query, args, err := a.db.From(dailyUsageTable).Prepared(true).
		Select("used").
		Where(goqu.Ex{"geofence_id": geofenceID, "usage_date": day}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var used int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read geofence usage", err)
	}
	return used, nil
}

// TryReserve atomically takes one slot if the day is not full
func (a *CapacityAdapter) TryReserve(ctx context.Context, geofenceID, day string, capacity int) (bool, error) {
	if capacity <= 0 {
		return false, nil
	}

	var used int
	err := a.client.DB().QueryRowContext(ctx, reserveSlotQuery, geofenceID, day, capacity).Scan(&used)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to reserve geofence slot", err)
	}
	return true, nil
}

// Release returns one slot
func (a *CapacityAdapter) Release(ctx context.Context, geofenceID, day string) error {
	if _, err := a.client.DB().ExecContext(ctx, releaseSlotQuery, geofenceID, day); err != nil {
		return apperrors.NewInternalError("failed to release geofence slot", err)
	}
	return nil
}
