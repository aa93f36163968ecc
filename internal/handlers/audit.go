package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/saludtec/fedhistoria/internal/middleware"
	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/internal/repository"
	"github.com/saludtec/fedhistoria/internal/services"
)

// AuditHandler serves audit submission and per-clinic audit listings
type AuditHandler struct {
	access *services.AccessService
	audit  *repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(access *services.AccessService, audit *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{
		access: access,
		audit:  audit,
	}
}

// Submit ingests one audit entry. Callers treat this as fire-and-forget;
// the entry is persisted before acknowledging.
func (h *AuditHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var entry models.AccessAuditEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if entry.ProfessionalID == "" || entry.PatientID == "" {
		http.Error(w, "professional_id and patient_id are required", http.StatusBadRequest)
		return
	}
	if entry.Outcome == "" {
		entry.Outcome = models.AccessOutcomeSuccess
	}

	if err := h.access.Append(r.Context(), &entry); err != nil {
		writeError(w, r, err, "Failed to store audit entry")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListByTenant returns the active clinic's audit trail, newest first
func (h *AuditHandler) ListByTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.audit.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		writeError(w, r, err, "Failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
