package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/internal/services"
)

// RegistryHandler serves the central registry's ingestion and query API
type RegistryHandler struct {
	registry *services.RegistryService
	access   *services.AccessService
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(registry *services.RegistryService, access *services.AccessService) *RegistryHandler {
	return &RegistryHandler{
		registry: registry,
		access:   access,
	}
}

type receiveResponse struct {
	ID uuid.UUID `json:"id"`
}

// Receive ingests a metadata record pushed by a peripheral node
func (h *RegistryHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var md models.DocumentMetadata
	if err := json.NewDecoder(r.Body).Decode(&md); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.registry.Receive(r.Context(), &md)
	if err != nil {
		writeError(w, r, err, "Failed to ingest document metadata")
		return
	}

	writeJSON(w, http.StatusCreated, receiveResponse{ID: id})
}

// QueryByPatient returns the patient's records narrowed to what the
// requesting professional may see. This is the boundary where every
// cross-clinic read is policy-checked and audited.
func (h *RegistryHandler) QueryByPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID := chi.URLParam(r, "patientId")
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}

	requester := models.Requester{
		ProfessionalID:   strings.TrimSpace(r.URL.Query().Get("profesionalId")),
		ProfessionalName: strings.TrimSpace(r.URL.Query().Get("nombreProfesional")),
		TenantID:         strings.TrimSpace(r.URL.Query().Get("tenantId")),
		Specialty:        strings.TrimSpace(r.URL.Query().Get("especialidad")),
	}
	if requester.ProfessionalID == "" {
		http.Error(w, "profesionalId query parameter is required", http.StatusBadRequest)
		return
	}

	records, err := h.registry.QueryByPatient(ctx, patientID)
	if err != nil {
		writeError(w, r, err, "Failed to query document metadata")
		return
	}

	visible, err := h.access.FilterVisible(ctx, records, requester)
	if err != nil {
		writeError(w, r, err, "Failed to filter document metadata")
		return
	}

	outcome := models.AccessOutcomeSuccess
	reason := ""
	if len(records) > 0 && len(visible) == 0 {
		outcome = models.AccessOutcomeDenied
		reason = "no matching access policy"
	}
	breakingGlass := false
	for _, rec := range visible {
		if rec.BreakingGlass {
			breakingGlass = true
			break
		}
	}
	h.access.RecordAccess(requester, patientID, "", outcome, reason, breakingGlass)

	writeJSON(w, http.StatusOK, visible)
}

// QueryByID returns one metadata record by document id
func (h *RegistryHandler) QueryByID(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		http.Error(w, "Document ID is required", http.StatusBadRequest)
		return
	}

	md, err := h.registry.QueryByID(r.Context(), documentID)
	if err != nil {
		writeError(w, r, err, "Failed to get document metadata")
		return
	}
	if md == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "document metadata not found"})
		return
	}

	writeJSON(w, http.StatusOK, md)
}
