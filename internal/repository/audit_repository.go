package repository

import (
	"context"
	"fmt"

	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/models"
)

// AuditRepository handles access audit database operations. Entries are
// append-only; there are no update or delete paths.
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create appends one audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AccessAuditEntry) error {
	if err := database.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// ListByTenant retrieves audit entries for one clinic, newest first
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.AccessAuditEntry, error) {
	var entries []models.AccessAuditEntry
	query := database.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// ListByPatient retrieves audit entries touching one patient, newest first
func (r *AuditRepository) ListByPatient(ctx context.Context, patientID string) ([]models.AccessAuditEntry, error) {
	var entries []models.AccessAuditEntry
	if err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
