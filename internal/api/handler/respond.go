package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/orderpush/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
//
// 503 tells the change-feed sender to redeliver the trigger later.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidEvent),
		errors.Is(err, domain.ErrMissingIdentity),
		errors.Is(err, domain.ErrNoCredential):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, domain.ErrBatchInFlight):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
