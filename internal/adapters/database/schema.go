package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS geofences (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		service_type     TEXT NOT NULL CHECK (service_type IN ('delivery', 'lab_collection')),
		shape_type       TEXT NOT NULL CHECK (shape_type IN ('polygon', 'circle')),
		polygon          JSONB,
		circle_lat       DOUBLE PRECISION,
		circle_lng       DOUBLE PRECISION,
		radius_meters    DOUBLE PRECISION,
		priority         INTEGER NOT NULL CHECK (priority BETWEEN 1 AND 10),
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		capacity_per_day INTEGER CHECK (capacity_per_day > 0),
		min_order_value  NUMERIC(12, 2) CHECK (min_order_value >= 0),
		fee              NUMERIC(12, 2) CHECK (fee >= 0),
		working_hours    JSONB,
		timezone         TEXT,
		store_id         TEXT,
		center_id        TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (num_nonnulls(store_id, center_id) = 1)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_geofences_service_type ON geofences(service_type)`,
	`CREATE TABLE IF NOT EXISTS base_locations (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		service_type TEXT NOT NULL CHECK (service_type IN ('delivery', 'lab_collection')),
		base_lat     DOUBLE PRECISION NOT NULL,
		base_lng     DOUBLE PRECISION NOT NULL,
		base_fare    NUMERIC(12, 2) NOT NULL CHECK (base_fare >= 0),
		base_km      DOUBLE PRECISION NOT NULL CHECK (base_km >= 0),
		per_km_fee   NUMERIC(12, 2) NOT NULL CHECK (per_km_fee >= 0),
		priority     INTEGER NOT NULL CHECK (priority BETWEEN 1 AND 10),
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		is_default   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_base_locations_default
		ON base_locations(service_type) WHERE is_default`,
	`CREATE TABLE IF NOT EXISTS geofence_daily_usage (
		geofence_id TEXT NOT NULL,
		usage_date  DATE NOT NULL,
		used        INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0),
		PRIMARY KEY (geofence_id, usage_date)
	)`,
}

// EnsureSchema creates the tables used by the adapters when missing
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	for i, stmt := range schemaStatements {
		if _, err := client.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	log.Debug().Int("statements", len(schemaStatements)).Msg("Database schema ensured")
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
