package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/manipurdigital/hidak-health-hub-sub002/internal/infrastructure/observability"
	apperrors "github.com/manipurdigital/hidak-health-hub-sub002/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP status codes
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeUnauthorized:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeUnavailable:
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Upstream unavailable")
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
