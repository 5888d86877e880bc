package handlers

import (
	"context"
	"net/http"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

// GeofenceAuthoring manages authored geofences
type GeofenceAuthoring interface {
	CreateGeofence(ctx context.Context, geofence *entities.Geofence) (*entities.Geofence, error)
	GetGeofence(ctx context.Context, id string) (*entities.Geofence, error)
	ListGeofences(ctx context.Context, serviceType entities.ServiceType) ([]*entities.Geofence, error)
	UpdateGeofence(ctx context.Context, geofence *entities.Geofence) (*entities.Geofence, error)
	DeleteGeofence(ctx context.Context, id string) error
}

// GeofenceHandler handles geofence administration requests
type GeofenceHandler struct {
	service GeofenceAuthoring
}

// NewGeofenceHandler creates a new geofence handler
func NewGeofenceHandler(service GeofenceAuthoring) *GeofenceHandler {
	return &GeofenceHandler{service: service}
}

// CreateGeofence handles POST /api/admin/geofences
func (h *GeofenceHandler) CreateGeofence(w http.ResponseWriter, r *http.Request) {
	var geofence entities.Geofence
	if err := decodeJSON(r, &geofence); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.service.CreateGeofence(r.Context(), &geofence)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetGeofence handles GET /api/admin/geofences/{id}
func (h *GeofenceHandler) GetGeofence(w http.ResponseWriter, r *http.Request) {
	geofence, err := h.service.GetGeofence(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, geofence)
}

// ListGeofences handles GET /api/admin/geofences?service_type=
func (h *GeofenceHandler) ListGeofences(w http.ResponseWriter, r *http.Request) {
	geofences, err := h.service.ListGeofences(r.Context(), entities.ServiceType(r.URL.Query().Get("service_type")))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"geofences": geofences,
		"count":     len(geofences),
	})
}

// UpdateGeofence handles PUT /api/admin/geofences/{id}
func (h *GeofenceHandler) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var geofence entities.Geofence
	if err := decodeJSON(r, &geofence); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	geofence.ID = r.PathValue("id")

	updated, err := h.service.UpdateGeofence(r.Context(), &geofence)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteGeofence handles DELETE /api/admin/geofences/{id}
func (h *GeofenceHandler) DeleteGeofence(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGeofence(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
