package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/database"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/events"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/fixtures"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/application/services"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/config"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

func main() {
	var path string
	var publish bool

	flag.StringVar(&path, "file", "fixtures/catalog.yaml", "Catalog fixture file to load")
	flag.BoolVar(&publish, "publish", true, "Publish catalog change events so running servers drop cached snapshots")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("serviceability-seed", cfg.Env, cfg.LogLevel)

	catalog, err := fixtures.LoadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fixtures")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := database.EnsureSchema(ctx, pgClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema")
	}

	var eventBus providers.EventBus
	if publish {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; catalog events will not be published")
		} else {
			defer redisClient.Close()
			eventBus = events.NewRedisEventBus(redisClient)
			defer eventBus.Close()
		}
	}

	svc := services.NewAuthoringService(
		database.NewGeofenceAdapter(pgClient),
		database.NewBaseLocationAdapter(pgClient),
		eventBus,
	)

	created, updated := 0, 0
	for _, b := range catalog.BaseLocations {
		isNew, err := upsertBaseLocation(ctx, svc, b)
		if err != nil {
			log.Fatal().Err(err).Str("id", b.ID).Msg("Failed to seed base location")
		}
		count(isNew, &created, &updated)
	}
	for _, g := range catalog.Geofences {
		isNew, err := upsertGeofence(ctx, svc, g)
		if err != nil {
			log.Fatal().Err(err).Str("id", g.ID).Msg("Failed to seed geofence")
		}
		count(isNew, &created, &updated)
	}

	log.Info().
		Str("file", path).
		Int("created", created).
		Int("updated", updated).
		Msg("Catalog seeded")
}

func upsertGeofence(ctx context.Context, svc *services.AuthoringService, g *entities.Geofence) (bool, error) {
	if _, err := svc.GetGeofence(ctx, g.ID); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return false, err
		}
		_, err = svc.CreateGeofence(ctx, g)
		return true, err
	}
	_, err := svc.UpdateGeofence(ctx, g)
	return false, err
}

func upsertBaseLocation(ctx context.Context, svc *services.AuthoringService, b *entities.BaseLocation) (bool, error) {
	if _, err := svc.GetBaseLocation(ctx, b.ID); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return false, err
		}
		_, err = svc.CreateBaseLocation(ctx, b)
		return true, err
	}
	_, err := svc.UpdateBaseLocation(ctx, b)
	return false, err
}

func count(isNew bool, created, updated *int) {
	if isNew {
		*created++
		return
	}
	*updated++
}
