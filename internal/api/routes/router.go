package routes

import (
	"net/http"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/api/handlers"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/api/middleware"
	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	serviceabilityHandler *handlers.ServiceabilityHandler
	geofenceHandler       *handlers.GeofenceHandler
	baseLocationHandler   *handlers.BaseLocationHandler

	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. rateLimiter may be nil.
func NewRouter(
	serviceabilityHandler *handlers.ServiceabilityHandler,
	geofenceHandler *handlers.GeofenceHandler,
	baseLocationHandler *handlers.BaseLocationHandler,
	rateLimiter *middleware.RateLimiter,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		serviceabilityHandler: serviceabilityHandler,
		geofenceHandler:       geofenceHandler,
		baseLocationHandler:   baseLocationHandler,
		rateLimiter:           rateLimiter,
		allowedOrigins:        allowedOrigins,
		metrics:               metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Serviceability endpoints are public and rate limited
	r.mux.Handle("GET /api/serviceability/check", r.limited(r.serviceabilityHandler.Check))
	r.mux.Handle("POST /api/serviceability/reserve", r.limited(r.serviceabilityHandler.Reserve))
	r.mux.Handle("POST /api/serviceability/release", r.limited(r.serviceabilityHandler.Release))

	// Admin diagnostics and authoring
	r.mux.HandleFunc("GET /api/serviceability/explain", r.serviceabilityHandler.Explain)

	r.mux.HandleFunc("POST /api/admin/geofences", r.geofenceHandler.CreateGeofence)
	r.mux.HandleFunc("GET /api/admin/geofences", r.geofenceHandler.ListGeofences)
	r.mux.HandleFunc("GET /api/admin/geofences/{id}", r.geofenceHandler.GetGeofence)
	r.mux.HandleFunc("PUT /api/admin/geofences/{id}", r.geofenceHandler.UpdateGeofence)
	r.mux.HandleFunc("DELETE /api/admin/geofences/{id}", r.geofenceHandler.DeleteGeofence)

	r.mux.HandleFunc("POST /api/admin/base-locations", r.baseLocationHandler.CreateBaseLocation)
	r.mux.HandleFunc("GET /api/admin/base-locations", r.baseLocationHandler.ListBaseLocations)
	r.mux.HandleFunc("GET /api/admin/base-locations/{id}", r.baseLocationHandler.GetBaseLocation)
	r.mux.HandleFunc("PUT /api/admin/base-locations/{id}", r.baseLocationHandler.UpdateBaseLocation)
	r.mux.HandleFunc("DELETE /api/admin/base-locations/{id}", r.baseLocationHandler.DeleteBaseLocation)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set on rejected requests too
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) limited(h http.HandlerFunc) http.Handler {
	if r.rateLimiter == nil {
		return h
	}
	return r.rateLimiter.Middleware(h)
}
