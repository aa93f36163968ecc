package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/apperrors"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the typed failure taxonomy to HTTP statuses. Anything
// untyped is a 500 with a generic message; details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case apperrors.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case apperrors.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case apperrors.IsAuthentication(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication rejected"})
	case apperrors.IsRegistryUnavailable(err):
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "central registry unavailable"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
	}
}
