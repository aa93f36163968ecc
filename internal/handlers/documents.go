package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/middleware"
	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/internal/registry"
	"github.com/saludtec/fedhistoria/internal/services"
	"github.com/saludtec/fedhistoria/pkg/docrender"
)

// DocumentHandler serves the peripheral node's document API
type DocumentHandler struct {
	documents *services.DocumentService
	registry  *registry.Client
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *services.DocumentService, registryClient *registry.Client) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		registry:  registryClient,
	}
}

// Create handles document creation. Local storage decides the outcome; a
// failed central registration is already downgraded inside the service.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	var req models.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.Store(ctx, tenantID, &req)
	if err != nil {
		writeError(w, r, err, "Failed to store document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// GetContent serves document content resolved from an access URI. The
// tenant rides in the URI's query parameter; a tenant mismatch triggers the
// explicit cross-tenant recovery lookup.
func (h *DocumentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "storageId"))
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	tenantID := strings.TrimSpace(r.URL.Query().Get("tenantId"))
	if tenantID == "" {
		tenantID, _ = middleware.GetTenantID(ctx)
	}
	if tenantID == "" {
		http.Error(w, "tenantId query parameter is required", http.StatusBadRequest)
		return
	}

	persist := r.URL.Query().Get("persist") == "true"

	content, contentType, err := h.documents.FetchContent(ctx, tenantID, id, persist)
	if err != nil {
		// The supplied tenant may be stale; try the recovery lookup
		// before giving up.
		doc, owningTenant, ferr := h.documents.FetchMetadataAnyTenant(ctx, tenantID, id)
		if ferr != nil || doc == nil {
			writeError(w, r, err, "Failed to fetch document content")
			return
		}
		content, contentType, err = h.documents.FetchContent(ctx, owningTenant, id, persist)
		if err != nil {
			writeError(w, r, err, "Failed to fetch document content")
			return
		}
		w.Header().Set("X-Owning-Tenant", owningTenant)
	}

	if !docrender.HasMagic(content) {
		log.Warn().Str("document_id", id.String()).Msg("Serving content without the expected format signature")
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(content)
}

// GetMetadata serves a document's local metadata, tenant-scoped
func (h *DocumentHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := middleware.GetTenantID(ctx)
	if !ok {
		http.Error(w, "Tenant ID not found", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "storageId"))
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.FetchMetadata(ctx, tenantID, id)
	if err != nil {
		writeError(w, r, err, "Failed to fetch document metadata")
		return
	}
	if doc == nil {
		// Recovery path: the document may live in another partition.
		var owningTenant string
		doc, owningTenant, err = h.documents.FetchMetadataAnyTenant(ctx, tenantID, id)
		if err != nil {
			writeError(w, r, err, "Failed to fetch document metadata")
			return
		}
		if doc == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "document not found"})
			return
		}
		w.Header().Set("X-Owning-Tenant", owningTenant)
	}

	writeJSON(w, http.StatusOK, doc)
}

// QueryPatient proxies a cross-clinic metadata query to the central
// registry, passing the requesting professional's identity for server-side
// policy filtering.
func (h *DocumentHandler) QueryPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := middleware.GetRequester(ctx)
	if !ok {
		http.Error(w, "Requester identity not found", http.StatusBadRequest)
		return
	}

	patientID := chi.URLParam(r, "patientId")
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}

	records, err := h.registry.FetchMetadataByPatient(ctx, patientID, requester)
	if err != nil {
		writeError(w, r, err, "Failed to query central registry")
		return
	}

	writeJSON(w, http.StatusOK, records)
}
