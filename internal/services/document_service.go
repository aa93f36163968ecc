package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/cache"
	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/pkg/docrender"
)

// ContentTypePDF is the content type served for rendered documents.
const ContentTypePDF = "application/pdf"

// SyncFailureHandler is invoked when a locally stored document could not be
// registered centrally. It is the extension point for a durable retry queue
// or outbox; the default is nil and the failure is only logged.
type SyncFailureHandler func(ctx context.Context, md *models.DocumentMetadata, err error)

// DocumentService handles the peripheral node's document flows: durable
// local storage first, then best-effort registration with the central
// registry.
type DocumentService struct {
	docs     DocumentStore
	patients PatientStore
	syncer   MetadataSyncer
	cache    cache.Cache
	cacheTTL time.Duration

	nodeBaseURL string

	// OnSyncFailure, when set, receives each metadata record that failed
	// to register.
	OnSyncFailure SyncFailureHandler
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docs DocumentStore,
	patients PatientStore,
	syncer MetadataSyncer,
	c cache.Cache,
	cacheTTL time.Duration,
	nodeBaseURL string,
) *DocumentService {
	return &DocumentService{
		docs:        docs,
		patients:    patients,
		syncer:      syncer,
		cache:       c,
		cacheTTL:    cacheTTL,
		nodeBaseURL: nodeBaseURL,
	}
}

// RegisterPatient creates a local patient record in the tenant partition
func (s *DocumentService) RegisterPatient(ctx context.Context, tenantID string, req *models.PatientRequest) (*models.Patient, error) {
	if req.NaturalID == "" {
		return nil, &apperrors.ValidationError{Field: "natural_id", Msg: "patient identifier is required"}
	}

	exists, err := s.patients.Exists(ctx, tenantID, req.NaturalID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &apperrors.ValidationError{Field: "natural_id", Msg: "patient is already registered"}
	}

	patient := &models.Patient{
		TenantID:   tenantID,
		NaturalID:  req.NaturalID,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Store validates and persists a clinical document, then best-effort
// registers its metadata centrally. Local persistence strictly precedes the
// sync attempt, and a sync failure never propagates to the caller: the
// document stays locally visible and centrally undiscoverable until
// re-driven.
func (s *DocumentService) Store(ctx context.Context, tenantID string, req *models.DocumentRequest) (*models.ClinicalDocument, error) {
	if req.PatientID == "" {
		return nil, &apperrors.ValidationError{Field: "patient_id", Msg: "patient identifier is required"}
	}
	if len(req.Content) == 0 && req.Body == "" {
		return nil, &apperrors.ValidationError{Field: "content", Msg: "document payload is empty and there is no textual body to render from"}
	}
	if req.Type == "" {
		return nil, &apperrors.ValidationError{Field: "type", Msg: "document type is required"}
	}

	registered, err := s.patients.Exists(ctx, tenantID, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, &apperrors.PatientNotRegisteredError{PatientID: req.PatientID, TenantID: tenantID}
	}

	docID := uuid.New()
	if req.DocumentID != "" {
		docID, err = uuid.Parse(req.DocumentID)
		if err != nil {
			return nil, &apperrors.ValidationError{Field: "document_id", Msg: "must be a valid UUID"}
		}
	}

	doc := &models.ClinicalDocument{
		ID:          docID,
		TenantID:    tenantID,
		PatientID:   req.PatientID,
		AuthorID:    req.AuthorID,
		AuthorName:  req.AuthorName,
		Type:        req.Type,
		Description: req.Description,
		Content:     req.Content,
		Body:        req.Body,
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	md := s.buildMetadata(doc)
	if err := s.syncer.RegisterMetadata(ctx, md); err != nil {
		log.Warn().Err(err).
			Str("document_id", doc.ID.String()).
			Str("tenant_id", tenantID).
			Str("patient_id", doc.PatientID).
			Msg("Document stored locally but central registration failed")
		if s.OnSyncFailure != nil {
			s.OnSyncFailure(ctx, md, err)
		}
	}

	return doc, nil
}

// buildMetadata projects a stored document into its registry record. The
// access URI embeds the owning tenant so retrieval can be routed back here.
func (s *DocumentService) buildMetadata(doc *models.ClinicalDocument) *models.DocumentMetadata {
	accessURI := fmt.Sprintf("%s/api/v1/documentos/%s?tenantId=%s",
		s.nodeBaseURL, doc.ID, url.QueryEscape(doc.TenantID))

	return &models.DocumentMetadata{
		DocumentID:  doc.ID.String(),
		PatientID:   doc.PatientID,
		TenantID:    doc.TenantID,
		AuthorName:  doc.AuthorName,
		Type:        doc.Type,
		Description: doc.Description,
		AccessURI:   accessURI,
		CreatedAt:   doc.CreatedAt,
	}
}

// FetchContent returns a document's binary content, rendering it from the
// textual body when no binary was stored. Rendered bytes are persisted only
// when persist is set.
func (s *DocumentService) FetchContent(ctx context.Context, tenantID string, id uuid.UUID, persist bool) ([]byte, string, error) {
	key := cache.ContentKey(tenantID, id.String())
	if cached, err := s.cache.Get(ctx, key); err == nil {
		return cached, ContentTypePDF, nil
	}

	doc, err := s.docs.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	if doc == nil {
		return nil, "", &apperrors.NotFoundError{Resource: "document", ID: id.String()}
	}

	if doc.HasContent() {
		if !docrender.HasMagic(doc.Content) {
			// Format drift is a soft warning: some documents are
			// generated elsewhere and re-uploaded.
			log.Warn().Str("document_id", id.String()).Str("tenant_id", tenantID).
				Msg("Stored content does not carry the expected format signature")
		}
		return doc.Content, ContentTypePDF, nil
	}

	if doc.Body == "" {
		return nil, "", &apperrors.NotFoundError{Resource: "document content", ID: id.String()}
	}

	rendered, err := docrender.Render(doc.Description, doc.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render document %s: %w", id, err)
	}

	if persist {
		if err := s.docs.SaveContent(ctx, tenantID, id, rendered); err != nil {
			log.Warn().Err(err).Str("document_id", id.String()).Msg("Failed to persist rendered content")
		}
	}
	if err := s.cache.Set(ctx, key, rendered, s.cacheTTL); err != nil {
		log.Debug().Err(err).Str("document_id", id.String()).Msg("Failed to cache rendered content")
	}

	return rendered, ContentTypePDF, nil
}

// FetchMetadata returns a document's local metadata, tenant-scoped.
func (s *DocumentService) FetchMetadata(ctx context.Context, tenantID string, id uuid.UUID) (*models.ClinicalDocument, error) {
	return s.docs.GetByID(ctx, tenantID, id)
}

// FetchMetadataAnyTenant is the explicit cross-tenant recovery lookup used
// when the supplied tenant does not own the document, so callers holding a
// stale route can self-correct. It is logged on every use and must never
// become the default lookup.
func (s *DocumentService) FetchMetadataAnyTenant(ctx context.Context, suppliedTenant string, id uuid.UUID) (*models.ClinicalDocument, string, error) {
	doc, err := s.docs.GetByIDAnyTenant(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if doc == nil {
		return nil, "", nil
	}

	log.Warn().
		Str("document_id", id.String()).
		Str("supplied_tenant", suppliedTenant).
		Str("owning_tenant", doc.TenantID).
		Msg("Cross-tenant fallback lookup resolved a misrouted document")

	return doc, doc.TenantID, nil
}
