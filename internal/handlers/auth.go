package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/saludtec/fedhistoria/internal/identity"
	"github.com/saludtec/fedhistoria/internal/models"
)

// AuthHandler serves the service-token endpoint used by nodes without a
// local signing identity.
type AuthHandler struct {
	issuer *identity.Issuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer *identity.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// Token exchanges a pre-shared service secret for a short-lived token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.issuer.Issue(req)
	if err != nil {
		writeError(w, r, err, "Failed to issue service token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
