package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/saludtec/fedhistoria/internal/models"
)

// The services depend on narrow store interfaces satisfied by the gorm
// repositories, so the flows can be exercised without a database.

// DocumentStore persists clinical documents in tenant partitions.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.ClinicalDocument) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.ClinicalDocument, error)
	GetByIDAnyTenant(ctx context.Context, id uuid.UUID) (*models.ClinicalDocument, error)
	SaveContent(ctx context.Context, tenantID string, id uuid.UUID, content []byte) error
}

// PatientStore answers local patient registration lookups.
type PatientStore interface {
	Create(ctx context.Context, patient *models.Patient) error
	Exists(ctx context.Context, tenantID, naturalID string) (bool, error)
}

// MetadataSyncer pushes metadata to the central registry.
type MetadataSyncer interface {
	RegisterMetadata(ctx context.Context, md *models.DocumentMetadata) error
}

// MetadataStore persists registry metadata records.
type MetadataStore interface {
	Upsert(ctx context.Context, md *models.DocumentMetadata) error
	GetByDocumentID(ctx context.Context, documentID string) (*models.DocumentMetadata, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.DocumentMetadata, error)
}

// PolicyStore loads the access policies in force.
type PolicyStore interface {
	ListInForceByPatients(ctx context.Context, patientIDs []string) ([]models.AccessPolicy, error)
}

// AuditStore appends access audit entries.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AccessAuditEntry) error
}
