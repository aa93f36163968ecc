package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/models"
)

// MetadataRepository handles central registry metadata database operations
type MetadataRepository struct{}

// NewMetadataRepository creates a new metadata repository
func NewMetadataRepository() *MetadataRepository {
	return &MetadataRepository{}
}

// Upsert stores a metadata record keyed by document id. Re-delivery
// replaces the whole record, making sync idempotent per document.
func (r *MetadataRepository) Upsert(ctx context.Context, md *models.DocumentMetadata) error {
	if err := database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"patient_id", "tenant_id", "author_name", "type",
				"description", "access_uri", "breaking_glass",
				"created_at", "created_at_label", "clinic_label",
				"received_at",
			}),
		}).
		Create(md).Error; err != nil {
		return fmt.Errorf("failed to upsert document metadata: %w", err)
	}
	return nil
}

// GetByDocumentID retrieves one record by its document id
func (r *MetadataRepository) GetByDocumentID(ctx context.Context, documentID string) (*models.DocumentMetadata, error) {
	var md models.DocumentMetadata
	err := database.DB.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&md).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document metadata: %w", err)
	}
	return &md, nil
}

// ListByPatient retrieves all records for a patient across clinics,
// ordered by creation time. Visibility filtering happens at the caller
// boundary, not here.
func (r *MetadataRepository) ListByPatient(ctx context.Context, patientID string) ([]models.DocumentMetadata, error) {
	var records []models.DocumentMetadata
	if err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list document metadata: %w", err)
	}
	return records, nil
}
