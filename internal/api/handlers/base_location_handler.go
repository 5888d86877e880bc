package handlers

import (
	"context"
	"net/http"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
)

// BaseLocationAuthoring manages hubs
type BaseLocationAuthoring interface {
	CreateBaseLocation(ctx context.Context, location *entities.BaseLocation) (*entities.BaseLocation, error)
	GetBaseLocation(ctx context.Context, id string) (*entities.BaseLocation, error)
	ListBaseLocations(ctx context.Context, serviceType entities.ServiceType) ([]*entities.BaseLocation, error)
	UpdateBaseLocation(ctx context.Context, location *entities.BaseLocation) (*entities.BaseLocation, error)
	DeleteBaseLocation(ctx context.Context, id string) error
}

// BaseLocationHandler handles base location administration requests
type BaseLocationHandler struct {
	service BaseLocationAuthoring
}

// NewBaseLocationHandler creates a new base location handler
func NewBaseLocationHandler(service BaseLocationAuthoring) *BaseLocationHandler {
	return &BaseLocationHandler{service: service}
}

// CreateBaseLocation handles POST /api/admin/base-locations
func (h *BaseLocationHandler) CreateBaseLocation(w http.ResponseWriter, r *http.Request) {
	var location entities.BaseLocation
	if err := decodeJSON(r, &location); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.service.CreateBaseLocation(r.Context(), &location)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetBaseLocation handles GET /api/admin/base-locations/{id}
func (h *BaseLocationHandler) GetBaseLocation(w http.ResponseWriter, r *http.Request) {
	location, err := h.service.GetBaseLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, location)
}

// ListBaseLocations handles GET /api/admin/base-locations?service_type=
func (h *BaseLocationHandler) ListBaseLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListBaseLocations(r.Context(), entities.ServiceType(r.URL.Query().Get("service_type")))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"base_locations": locations,
		"count":          len(locations),
	})
}

// UpdateBaseLocation handles PUT /api/admin/base-locations/{id}
func (h *BaseLocationHandler) UpdateBaseLocation(w http.ResponseWriter, r *http.Request) {
	var location entities.BaseLocation
	if err := decodeJSON(r, &location); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	location.ID = r.PathValue("id")

	updated, err := h.service.UpdateBaseLocation(r.Context(), &location)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteBaseLocation handles DELETE /api/admin/base-locations/{id}
func (h *BaseLocationHandler) DeleteBaseLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBaseLocation(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
