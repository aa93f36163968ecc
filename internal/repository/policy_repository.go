package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/models"
)

// PolicyRepository handles access policy database operations
type PolicyRepository struct{}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{}
}

// Create grants a new access policy
func (r *PolicyRepository) Create(ctx context.Context, policy *models.AccessPolicy) error {
	if err := database.DB.WithContext(ctx).Create(policy).Error; err != nil {
		return fmt.Errorf("failed to create access policy: %w", err)
	}
	return nil
}

// ListInForceByPatients retrieves the active, non-expired policies covering
// any of the given patients. Revoked and expired rows are excluded at the
// query so the filter only ever consults policies in force.
func (r *PolicyRepository) ListInForceByPatients(ctx context.Context, patientIDs []string) ([]models.AccessPolicy, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}

	var policies []models.AccessPolicy
	if err := database.DB.WithContext(ctx).
		Where("patient_id IN ?", patientIDs).
		Where("status = ?", models.PolicyStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list access policies: %w", err)
	}
	return policies, nil
}

// ListByPatient retrieves every policy for one patient, any status
func (r *PolicyRepository) ListByPatient(ctx context.Context, patientID string) ([]models.AccessPolicy, error) {
	var policies []models.AccessPolicy
	if err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list access policies: %w", err)
	}
	return policies, nil
}

// Revoke marks a policy revoked. Revocation is explicit and permanent;
// expiry is derived from expires_at and needs no transition here.
func (r *PolicyRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := database.DB.WithContext(ctx).
		Model(&models.AccessPolicy{}).
		Where("id = ? AND status = ?", id, models.PolicyStatusActive).
		Updates(map[string]interface{}{
			"status":     models.PolicyStatusRevoked,
			"revoked_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke access policy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is the gorm missing-row sentinel
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
