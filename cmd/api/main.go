package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/cache"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/database"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/events"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/fixtures"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/adapters/memory"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/api/handlers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/api/middleware"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/api/routes"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/application/services"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/providers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/repositories"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/postgres"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/clients/redis"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	needsPostgres := cfg.Serviceability.CatalogBackend == "postgres" || cfg.Serviceability.CapacityBackend == "postgres"
	var pgClient *postgres.Client
	if needsPostgres {
		pgClient, err = postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if err := database.EnsureSchema(ctx, pgClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	// Redis is optional unless it backs the capacity counter
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		if cfg.Serviceability.CapacityBackend == "redis" {
			log.Fatal().Err(err).Msg("Redis is required for CAPACITY_BACKEND=redis")
		}
		log.Warn().Err(err).Msg("Redis unavailable; running without snapshot cache")
	} else {
		defer redisClient.Close()
	}

	// Catalog stores
	var geofenceRepo repositories.GeofenceRepository
	var baseLocationRepo repositories.BaseLocationRepository
	switch cfg.Serviceability.CatalogBackend {
	case "memory":
		geofenceStore := memory.NewGeofenceStore()
		baseLocationStore := memory.NewBaseLocationStore()
		if path := cfg.Serviceability.CatalogFixtures; path != "" {
			catalog, err := fixtures.LoadFile(path)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load catalog fixtures")
			}
			geofenceStore = memory.NewGeofenceStore(catalog.Geofences...)
			baseLocationStore = memory.NewBaseLocationStore(catalog.BaseLocations...)
			log.Info().
				Str("path", path).
				Int("geofences", len(catalog.Geofences)).
				Int("base_locations", len(catalog.BaseLocations)).
				Msg("Catalog fixtures loaded")
		}
		geofenceRepo = geofenceStore
		baseLocationRepo = baseLocationStore
	default:
		geofenceRepo = database.NewGeofenceAdapter(pgClient)
		baseLocationRepo = database.NewBaseLocationAdapter(pgClient)
	}

	// Capacity counter
	var capacity providers.CapacityCounter
	switch cfg.Serviceability.CapacityBackend {
	case "redis":
		capacity = cache.NewRedisCapacityCounter(redisClient)
	case "memory":
		capacity = memory.NewCapacityCounter()
	default:
		capacity = database.NewCapacityAdapter(pgClient)
	}

	// Event bus for catalog change notifications
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
	} else {
		eventBus = memory.NewEventBus()
	}

	catalogOpts := []services.CatalogOption{
		services.WithCatalogMetrics(metrics),
		services.WithCatalogLoadTimeout(cfg.Serviceability.CatalogLoadTimeout),
	}
	if redisClient != nil && cfg.Serviceability.CatalogCacheTTL > 0 {
		catalogOpts = append(catalogOpts, services.WithSnapshotCache(cache.NewRedisAdapter(redisClient), cfg.Serviceability.CatalogCacheTTL))
	}
	catalogService := services.NewCatalogService(geofenceRepo, baseLocationRepo, cfg.Serviceability.Location(), catalogOpts...)

	invalidation := services.NewCatalogInvalidationService(catalogService, eventBus)
	if err := invalidation.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start catalog invalidation service")
	}

	serviceabilityService := services.NewServiceabilityService(
		catalogService,
		services.NewGeofenceResolver(capacity),
		services.NewBaseLocationResolver(cfg.Serviceability.CurrencyDigits, cfg.Serviceability.TieEpsilonMeters),
		capacity,
		services.ServiceabilityOptions{
			MaxServiceRadiusKm: cfg.Serviceability.MaxServiceRadiusKm,
			Metrics:            metrics,
		},
	)
	authoringService := services.NewAuthoringService(geofenceRepo, baseLocationRepo, eventBus)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		if err := rateLimiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
			log.Fatal().Err(err).Msg("Invalid rate limit trusted proxies")
		}
	}

	router := routes.NewRouter(
		handlers.NewServiceabilityHandler(serviceabilityService),
		handlers.NewGeofenceHandler(authoringService),
		handlers.NewBaseLocationHandler(authoringService),
		rateLimiter,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("catalog_backend", cfg.Serviceability.CatalogBackend).
			Str("capacity_backend", cfg.Serviceability.CapacityBackend).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	invalidation.Stop()
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
