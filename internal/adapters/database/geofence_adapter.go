package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

const geofencesTable = "geofences"

var geofenceColumns = []interface{}{
	"id", "name", "service_type", "shape_type", "polygon",
	"circle_lat", "circle_lng", "radius_meters", "priority", "is_active",
	"capacity_per_day", "min_order_value", "fee", "working_hours", "timezone",
	"store_id", "center_id", "created_at", "updated_at",
}

// GeofenceAdapter implements GeofenceRepository on PostgreSQL
type GeofenceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.GeofenceRepository = (*GeofenceAdapter)(nil)

// NewGeofenceAdapter creates a new geofence adapter
func NewGeofenceAdapter(client *postgres.Client) *GeofenceAdapter {
	return &GeofenceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new geofence
func (a *GeofenceAdapter) Create(ctx context.Context, geofence *entities.Geofence) error {
	record, err := geofenceRecord(geofence)
	if err != nil {
		return apperrors.NewInternalError("failed to encode geofence", err)
	}
	record["id"] = geofence.ID
	record["created_at"] = geofence.CreatedAt

	query, args, err := a.db.Insert(geofencesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("geofence with id %s already exists", geofence.ID))
		}
		return apperrors.NewInternalError("failed to create geofence", err)
	}

	return nil
}

// GetByID retrieves a geofence by ID
func (a *GeofenceAdapter) GetByID(ctx context.Context, id string) (*entities.Geofence, error) {
	query, args, err := a.db.From(geofencesTable).Prepared(true).
		Select(geofenceColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	geofence, err := scanGeofence(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get geofence", err)
	}

	return geofence, nil
}

// Update updates a geofence
func (a *GeofenceAdapter) Update(ctx context.Context, geofence *entities.Geofence) error {
	record, err := geofenceRecord(geofence)
	if err != nil {
		return apperrors.NewInternalError("failed to encode geofence", err)
	}

	query, args, err := a.db.Update(geofencesTable).Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": geofence.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update geofence", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", geofence.ID))
	}

	return nil
}

// Delete removes a geofence
func (a *GeofenceAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(geofencesTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete geofence", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("geofence with id %s not found", id))
	}

	return nil
}

// ListByServiceType returns all geofences of a service type in one query.
// Rows whose stored JSON cannot be decoded are logged and skipped.
func (a *GeofenceAdapter) ListByServiceType(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error) {
	query, args, err := a.db.From(geofencesTable).Prepared(true).
		Select(geofenceColumns...).
		Where(goqu.Ex{"service_type": string(serviceType)}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list geofences", err)
	}
	defer rows.Close()

	geofences := []*entities.Geofence{}
	for rows.Next() {
		geofence, err := scanGeofence(rows)
		var malformed *malformedRowError
		if errors.As(err, &malformed) {
			observability.LoggerFromContext(ctx).Warn().
				Err(malformed.err).
				Str("geofence_id", malformed.id).
				Str("column", malformed.column).
				Msg("Skipping geofence with malformed stored data")
			continue
		}
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan geofence", err)
		}
		geofences = append(geofences, geofence)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating geofences", err)
	}

	return geofences, nil
}

// geofenceRecord maps the mutable columns of a geofence
func geofenceRecord(g *entities.Geofence) (goqu.Record, error) {
	var polygon, workingHours interface{}
	if len(g.Polygon) > 0 {
		data, err := json.Marshal(g.Polygon)
		if err != nil {
			return nil, err
		}
		polygon = string(data)
	}
	if g.WorkingHours != nil {
		data, err := json.Marshal(g.WorkingHours)
		if err != nil {
			return nil, err
		}
		workingHours = string(data)
	}

	var circleLat, circleLng sql.NullFloat64
	if g.CircleCenter != nil {
		circleLat = sql.NullFloat64{Float64: g.CircleCenter.Lat, Valid: true}
		circleLng = sql.NullFloat64{Float64: g.CircleCenter.Lng, Valid: true}
	}

	return goqu.Record{
		"name":             g.Name,
		"service_type":     string(g.ServiceType),
		"shape_type":       string(g.ShapeType),
		"polygon":          polygon,
		"circle_lat":       circleLat,
		"circle_lng":       circleLng,
		"radius_meters":    sql.NullFloat64{Float64: g.RadiusMeters, Valid: g.ShapeType == entities.ShapeTypeCircle},
		"priority":         g.Priority,
		"is_active":        g.IsActive,
		"capacity_per_day": nullInt(g.CapacityPerDay),
		"min_order_value":  nullFloat(g.MinOrderValue),
		"fee":              nullFloat(g.Fee),
		"working_hours":    workingHours,
		"timezone":         sql.NullString{String: g.Timezone, Valid: g.Timezone != ""},
		"store_id":         sql.NullString{String: g.Partner.StoreID, Valid: g.Partner.StoreID != ""},
		"center_id":        sql.NullString{String: g.Partner.CenterID, Valid: g.Partner.CenterID != ""},
		"updated_at":       g.UpdatedAt,
	}, nil
}

// malformedRowError marks a row that scanned but whose JSON columns did not decode
type malformedRowError struct {
	id     string
	column string
	err    error
}

func (e *malformedRowError) Error() string {
	return fmt.Sprintf("decode %s for geofence %s: %v", e.column, e.id, e.err)
}

func (e *malformedRowError) Unwrap() error { return e.err }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGeofence(row rowScanner) (*entities.Geofence, error) {
	g := &entities.Geofence{}
	var (
		serviceType, shapeType       string
		polygon, workingHours        sql.NullString
		circleLat, circleLng, radius sql.NullFloat64
		capacity                     sql.NullInt64
		minOrder, fee                sql.NullFloat64
		timezone, storeID, centerID  sql.NullString
		createdAt, updatedAt         time.Time
	)

	err := row.Scan(
		&g.ID,
		&g.Name,
		&serviceType,
		&shapeType,
		&polygon,
		&circleLat,
		&circleLng,
		&radius,
		&g.Priority,
		&g.IsActive,
		&capacity,
		&minOrder,
		&fee,
		&workingHours,
		&timezone,
		&storeID,
		&centerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.ServiceType = entities.ServiceType(serviceType)
	g.ShapeType = entities.ShapeType(shapeType)
	g.CreatedAt = createdAt
	g.UpdatedAt = updatedAt
	g.Timezone = timezone.String
	g.Partner = entities.PartnerRef{StoreID: storeID.String, CenterID: centerID.String}

	if polygon.Valid && polygon.String != "" {
		if err := json.Unmarshal([]byte(polygon.String), &g.Polygon); err != nil {
			return nil, &malformedRowError{id: g.ID, column: "polygon", err: err}
		}
	}
	if workingHours.Valid && workingHours.String != "" {
		if err := json.Unmarshal([]byte(workingHours.String), &g.WorkingHours); err != nil {
			return nil, &malformedRowError{id: g.ID, column: "working_hours", err: err}
		}
	}
	if circleLat.Valid && circleLng.Valid {
		center := geo.NewPoint(circleLat.Float64, circleLng.Float64)
		g.CircleCenter = &center
	}
	if radius.Valid {
		g.RadiusMeters = radius.Float64
	}
	if capacity.Valid {
		v := int(capacity.Int64)
		g.CapacityPerDay = &v
	}
	if minOrder.Valid {
		v := minOrder.Float64
		g.MinOrderValue = &v
	}
	if fee.Valid {
		v := fee.Float64
		g.Fee = &v
	}

	return g, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
