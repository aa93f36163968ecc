package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/saludtec/fedhistoria/internal/middleware"
	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/internal/services"
)

// PatientHandler serves local patient registration
type PatientHandler struct {
	documents *services.DocumentService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(documents *services.DocumentService) *PatientHandler {
	return &PatientHandler{documents: documents}
}

// Register creates a local patient record in the active tenant
func (h *PatientHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	var req models.PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.documents.RegisterPatient(ctx, tenantID, &req)
	if err != nil {
		writeError(w, r, err, "Failed to register patient")
		return
	}

	writeJSON(w, http.StatusCreated, patient)
}
