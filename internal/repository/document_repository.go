package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/models"
)

// DocumentRepository handles clinical document database operations
type DocumentRepository struct{}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{}
}

// Create persists a clinical document in its owning tenant partition
func (r *DocumentRepository) Create(ctx context.Context, doc *models.ClinicalDocument) error {
	if err := database.DB.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create clinical document: %w", err)
	}
	return nil
}

// GetByID retrieves a document scoped to one tenant
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.ClinicalDocument, error) {
	var doc models.ClinicalDocument
	err := database.DB.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clinical document: %w", err)
	}
	return &doc, nil
}

// GetByIDAnyTenant looks a document up across all tenant partitions. It is
// the explicit rare-path recovery for stale routing, never the default
// lookup; callers log the mismatch and self-correct with the returned
// owning tenant.
func (r *DocumentRepository) GetByIDAnyTenant(ctx context.Context, id uuid.UUID) (*models.ClinicalDocument, error) {
	var doc models.ClinicalDocument
	err := database.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clinical document across tenants: %w", err)
	}
	return &doc, nil
}

// SaveContent stores rendered binary content for a document. Used only when
// a caller explicitly asks for generated bytes to be persisted.
func (r *DocumentRepository) SaveContent(ctx context.Context, tenantID string, id uuid.UUID, content []byte) error {
	if err := database.DB.WithContext(ctx).
		Model(&models.ClinicalDocument{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("content", content).Error; err != nil {
		return fmt.Errorf("failed to save document content: %w", err)
	}
	return nil
}

// ListByPatient retrieves one tenant's documents for a patient
func (r *DocumentRepository) ListByPatient(ctx context.Context, tenantID, patientID string) ([]models.ClinicalDocument, error) {
	var docs []models.ClinicalDocument
	if err := database.DB.WithContext(ctx).
		Where("tenant_id = ? AND patient_id = ?", tenantID, patientID).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list clinical documents: %w", err)
	}
	return docs, nil
}
