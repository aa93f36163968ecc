package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/cache"
	"github.com/saludtec/fedhistoria/internal/models"
)

// createdAtLabelLayout is the denormalized display format computed at
// ingest time.
const createdAtLabelLayout = "02/01/2006 15:04"

// RegistryService handles central metadata ingestion and queries. It is not
// security-enforcing: visibility filtering happens at the handler boundary
// via AccessService.
type RegistryService struct {
	store    MetadataStore
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewRegistryService creates a new registry service
func NewRegistryService(store MetadataStore, c cache.Cache, cacheTTL time.Duration) *RegistryService {
	return &RegistryService{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Receive ingests one metadata record, idempotent by document id: a
// re-delivery replaces the record whole, the later delivery's fields win.
// Denormalized read fields are computed here, at write time.
func (s *RegistryService) Receive(ctx context.Context, md *models.DocumentMetadata) (uuid.UUID, error) {
	if md.PatientID == "" {
		return uuid.Nil, &apperrors.ValidationError{Field: "patient_id", Msg: "patient identifier is required"}
	}
	if md.DocumentID == "" {
		return uuid.Nil, &apperrors.ValidationError{Field: "document_id", Msg: "document identifier is required"}
	}
	if md.AccessURI == "" {
		return uuid.Nil, &apperrors.ValidationError{Field: "access_uri", Msg: "access URI is required"}
	}

	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now()
	}
	md.CreatedAtLabel = md.CreatedAt.Format(createdAtLabelLayout)
	md.ClinicLabel = clinicLabel(md.TenantID)
	md.ReceivedAt = time.Now()

	if err := s.store.Upsert(ctx, md); err != nil {
		return uuid.Nil, err
	}

	// Cached patient queries are stale now.
	if err := s.cache.Delete(ctx, cache.PatientQueryKey(md.PatientID)); err != nil {
		log.Debug().Err(err).Str("patient_id", md.PatientID).Msg("Failed to invalidate patient query cache")
	}

	stored, err := s.store.GetByDocumentID(ctx, md.DocumentID)
	if err != nil {
		return uuid.Nil, err
	}
	if stored == nil {
		return uuid.Nil, fmt.Errorf("metadata for document %s missing after upsert", md.DocumentID)
	}
	return stored.ID, nil
}

// QueryByPatient returns every record for the patient across all clinics,
// ordered by creation time, before any policy filtering.
func (s *RegistryService) QueryByPatient(ctx context.Context, patientID string) ([]models.DocumentMetadata, error) {
	if patientID == "" {
		return nil, &apperrors.ValidationError{Field: "patient_id", Msg: "patient identifier is required"}
	}

	key := cache.PatientQueryKey(patientID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var records []models.DocumentMetadata
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
	}

	records, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(records); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
			log.Debug().Err(err).Str("patient_id", patientID).Msg("Failed to cache patient query")
		}
	}

	return records, nil
}

// QueryByID returns one record by document id, or nil when absent.
func (s *RegistryService) QueryByID(ctx context.Context, documentID string) (*models.DocumentMetadata, error) {
	return s.store.GetByDocumentID(ctx, documentID)
}

// clinicLabel derives the display label for the originating clinic.
func clinicLabel(tenantID string) string {
	return "Clínica " + tenantID
}
