package handlers

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/domain/entities"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
	"github.com/manipurdigital/hidak-health-hub-sub002/pkg/geo"
)

// ServiceabilityChecker is the resolution engine behind the handler
type ServiceabilityChecker interface {
	Check(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.ServiceabilityResult, error)
	Explain(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.Explanation, error)
	Reserve(ctx context.Context, query *entities.ServiceabilityQuery) (*entities.ServiceabilityResult, error)
	Release(ctx context.Context, geofenceID string, serviceType entities.ServiceType, atTime time.Time) error
}

// ServiceabilityHandler handles serviceability HTTP requests
type ServiceabilityHandler struct {
	service ServiceabilityChecker
}

// NewServiceabilityHandler creates a new serviceability handler
func NewServiceabilityHandler(service ServiceabilityChecker) *ServiceabilityHandler {
	return &ServiceabilityHandler{service: service}
}

// queryRequest is the JSON body accepted by reserve
type queryRequest struct {
	Lat         *float64   `json:"lat"`
	Lng         *float64   `json:"lng"`
	ServiceType string     `json:"service_type"`
	OrderValue  *float64   `json:"order_value,omitempty"`
	AtTime      *time.Time `json:"at_time,omitempty"`
}

type releaseRequest struct {
	GeofenceID  string     `json:"geofence_id"`
	ServiceType string     `json:"service_type"`
	AtTime      *time.Time `json:"at_time,omitempty"`
}

// Check handles GET /api/serviceability/check
func (h *ServiceabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	query, err := parseQueryParams(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Check(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Explain handles GET /api/serviceability/explain
func (h *ServiceabilityHandler) Explain(w http.ResponseWriter, r *http.Request) {
	query, err := parseQueryParams(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	explanation, err := h.service.Explain(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, explanation)
}

// Reserve handles POST /api/serviceability/reserve
func (h *ServiceabilityHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query := &entities.ServiceabilityQuery{
		ServiceType: entities.ServiceType(req.ServiceType),
		OrderValue:  req.OrderValue,
		AtTime:      req.AtTime,
	}
	if req.Lat != nil && req.Lng != nil {
		p := geo.NewPoint(*req.Lat, *req.Lng)
		query.Point = &p
	}

	result, err := h.service.Reserve(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Release handles POST /api/serviceability/release
func (h *ServiceabilityHandler) Release(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var atTime time.Time
	if req.AtTime != nil {
		atTime = *req.AtTime
	}

	if err := h.service.Release(r.Context(), req.GeofenceID, entities.ServiceType(req.ServiceType), atTime); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseQueryParams reads lat, lng, service_type, order_value and at
// (RFC 3339) from the query string
func parseQueryParams(values url.Values) (*entities.ServiceabilityQuery, error) {
	query := &entities.ServiceabilityQuery{
		ServiceType: entities.ServiceType(values.Get("service_type")),
	}

	latRaw, lngRaw := values.Get("lat"), values.Get("lng")
	if latRaw == "" || lngRaw == "" {
		return nil, apperrors.NewValidationError("lat and lng are required")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("lng must be a number")
	}
	p := geo.NewPoint(lat, lng)
	query.Point = &p

	if raw := values.Get("order_value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperrors.NewValidationError("order_value must be a number")
		}
		query.OrderValue = &v
	}

	if raw := values.Get("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperrors.NewValidationError("at must be an RFC 3339 timestamp")
		}
		query.AtTime = &at
	}

	return query, nil
}
