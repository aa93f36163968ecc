package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/internal/repository"
)

// PolicyHandler serves access policy management
type PolicyHandler struct {
	policies *repository.PolicyRepository
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policies *repository.PolicyRepository) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

// Grant creates a new access policy
func (h *PolicyHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req models.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || req.AuthorizingClinic == "" || req.ProfessionalID == "" {
		http.Error(w, "patient_id, authorizing_clinic and professional_id are required", http.StatusBadRequest)
		return
	}

	policy := &models.AccessPolicy{
		PatientID:         req.PatientID,
		AuthorizingClinic: req.AuthorizingClinic,
		ProfessionalID:    req.ProfessionalID,
		Specialties:       strings.Join(req.Specialties, ","),
		DocumentID:        req.DocumentID,
		GrantedBy:         req.GrantedBy,
		ExpiresAt:         req.ExpiresAt,
		Status:            models.PolicyStatusActive,
	}

	if err := h.policies.Create(r.Context(), policy); err != nil {
		writeError(w, r, err, "Failed to create access policy")
		return
	}

	log.Info().
		Str("policy_id", policy.ID.String()).
		Str("patient_id", policy.PatientID).
		Str("authorizing_clinic", policy.AuthorizingClinic).
		Str("professional_id", policy.ProfessionalID).
		Msg("Access policy granted")

	writeJSON(w, http.StatusCreated, policy)
}

// Revoke marks a policy revoked
func (h *PolicyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid policy ID", http.StatusBadRequest)
		return
	}

	if err := h.policies.Revoke(r.Context(), id); err != nil {
		if repository.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "active policy not found"})
			return
		}
		writeError(w, r, err, "Failed to revoke access policy")
		return
	}

	log.Info().Str("policy_id", id.String()).Msg("Access policy revoked")
	w.WriteHeader(http.StatusNoContent)
}

// ListByPatient returns every policy granted over one patient
func (h *PolicyHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientId")
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}

	policies, err := h.policies.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, r, err, "Failed to list access policies")
		return
	}

	writeJSON(w, http.StatusOK, policies)
}
