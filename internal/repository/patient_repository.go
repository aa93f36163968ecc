package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/saludtec/fedhistoria/internal/database"
	"github.com/saludtec/fedhistoria/internal/models"
)

// PatientRepository handles local patient record database operations
type PatientRepository struct{}

// NewPatientRepository creates a new patient repository
func NewPatientRepository() *PatientRepository {
	return &PatientRepository{}
}

// Create registers a patient in one tenant partition
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := database.DB.WithContext(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// Exists reports whether the tenant has a local record for the patient
func (r *PatientRepository) Exists(ctx context.Context, tenantID, naturalID string) (bool, error) {
	var count int64
	if err := database.DB.WithContext(ctx).
		Model(&models.Patient{}).
		Where("tenant_id = ? AND natural_id = ?", tenantID, naturalID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check patient existence: %w", err)
	}
	return count > 0, nil
}

// GetByNaturalID retrieves a tenant's patient record by natural identifier
func (r *PatientRepository) GetByNaturalID(ctx context.Context, tenantID, naturalID string) (*models.Patient, error) {
	var patient models.Patient
	err := database.DB.WithContext(ctx).
		Where("tenant_id = ? AND natural_id = ?", tenantID, naturalID).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}
