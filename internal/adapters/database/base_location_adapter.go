package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

const baseLocationsTable = "base_locations"

var baseLocationColumns = []interface{}{
	"id", "name", "service_type", "base_lat", "base_lng",
	"base_fare", "base_km", "per_km_fee", "priority",
	"is_active", "is_default", "created_at", "updated_at",
}

// BaseLocationAdapter implements BaseLocationRepository on PostgreSQL
type BaseLocationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.BaseLocationRepository = (*BaseLocationAdapter)(nil)

// NewBaseLocationAdapter creates a new base location adapter
func NewBaseLocationAdapter(client *postgres.Client) *BaseLocationAdapter {
	return &BaseLocationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new base location
func (a *BaseLocationAdapter) Create(ctx context.Context, location *entities.BaseLocation) error {
	return a.insert(ctx, a.client.DB(), location)
}

// CreateDefault inserts the hub and takes the default flag from every other
// hub of its service type in one transaction
func (a *BaseLocationAdapter) CreateDefault(ctx context.Context, location *entities.BaseLocation) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		if err := a.clearDefault(ctx, tx, location.ServiceType, location.ID); err != nil {
			return err
		}
		return a.insert(ctx, tx, location)
	})
}

func (a *BaseLocationAdapter) insert(ctx context.Context, db execer, location *entities.BaseLocation) error {
	record := baseLocationRecord(location)
	record["id"] = location.ID
	record["created_at"] = location.CreatedAt

	query, args, err := a.db.Insert(baseLocationsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("base location %s conflicts with an existing record", location.ID))
		}
		return apperrors.NewInternalError("failed to create base location", err)
	}

	return nil
}

// GetByID retrieves a base location by ID
func (a *BaseLocationAdapter) GetByID(ctx context.Context, id string) (*entities.BaseLocation, error) {
	query, args, err := a.db.From(baseLocationsTable).Prepared(true).
		Select(baseLocationColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	location, err := scanBaseLocation(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get base location", err)
	}

	return location, nil
}

// Update updates a base location
func (a *BaseLocationAdapter) Update(ctx context.Context, location *entities.BaseLocation) error {
	return a.update(ctx, a.client.DB(), location)
}

// UpdateDefault updates the hub and takes the default flag from every other
// hub of its service type in one transaction
func (a *BaseLocationAdapter) UpdateDefault(ctx context.Context, location *entities.BaseLocation) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		if err := a.clearDefault(ctx, tx, location.ServiceType, location.ID); err != nil {
			return err
		}
		return a.update(ctx, tx, location)
	})
}

func (a *BaseLocationAdapter) update(ctx context.Context, db execer, location *entities.BaseLocation) error {
	query, args, err := a.db.Update(baseLocationsTable).Prepared(true).
		Set(baseLocationRecord(location)).
		Where(goqu.Ex{"id": location.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("another default base location exists for this service type")
		}
		return apperrors.NewInternalError("failed to update base location", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", location.ID))
	}

	return nil
}

// Delete removes a base location
func (a *BaseLocationAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(baseLocationsTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete base location", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("base location with id %s not found", id))
	}

	return nil
}

// ListByServiceType returns all base locations of a service type
func (a *BaseLocationAdapter) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error) {
	query, args, err := a.db.From(baseLocationsTable).Prepared(true).
		Select(baseLocationColumns...).
		Where(goqu.Ex{"service_type": string(serviceType)}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list base locations", err)
	}
	defer rows.Close()

	locations := []*entities.BaseLocation{}
	for rows.Next() {
		location, err := scanBaseLocation(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan base location", err)
		}
		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating base locations", err)
	}

	return locations, nil
}

func (a *BaseLocationAdapter) clearDefault(ctx context.Context, db execer, serviceType entities.ServiceType, exceptID string) error {
	query, args, err := a.db.Update(baseLocationsTable).Prepared(true).
		Set(goqu.Record{"is_default": false}).
		Where(
			goqu.Ex{"service_type": string(serviceType), "is_default": true},
			goqu.C("id").Neq(exceptID),
		).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to clear default base location", err)
	}
	return nil
}

// withTx commits when fn succeeds and rolls back otherwise
func (a *BaseLocationAdapter) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Msg("Failed to roll back base location transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func baseLocationRecord(b *entities.BaseLocation) goqu.Record {
	return goqu.Record{
		"name":         b.Name,
		"service_type": string(b.ServiceType),
		"base_lat":     b.BaseLat,
		"base_lng":     b.BaseLng,
		"base_fare":    b.BaseFare,
		"base_km":      b.BaseKm,
		"per_km_fee":   b.PerKmFee,
		"priority":     b.Priority,
		"is_active":    b.IsActive,
		"is_default":   b.IsDefault,
		"updated_at":   b.UpdatedAt,
	}
}

func scanBaseLocation(row rowScanner) (*entities.BaseLocation, error) {
	b := &entities.BaseLocation{}
	var serviceType string

	err := row.Scan(
		&b.ID,
		&b.Name,
		&serviceType,
		&b.BaseLat,
		&b.BaseLng,
		&b.BaseFare,
		&b.BaseKm,
		&b.PerKmFee,
		&b.Priority,
		&b.IsActive,
		&b.IsDefault,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ServiceType = entities.ServiceType(serviceType)
	return b, nil
}
