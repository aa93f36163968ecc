package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentMetadata is the central registry projection of a clinical
// document. The registry never stores document content: AccessURI points
// back to the owning node, carrying the tenant so retrieval can be routed.
// Records are replaced whole on re-delivery, never patched.
type DocumentMetadata struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID    string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"document_id"`
	PatientID     string       `gorm:"type:varchar(64);not null;index" json:"patient_id"`
	TenantID      string       `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	AuthorName    string       `gorm:"type:varchar(255)" json:"author_name"`
	Type          DocumentType `gorm:"type:varchar(50)" json:"type"`
	Description   string       `gorm:"type:text" json:"description,omitempty"`
	AccessURI     string       `gorm:"type:varchar(1024);not null" json:"access_uri"`
	BreakingGlass bool         `gorm:"default:false" json:"breaking_glass"`
	CreatedAt     time.Time    `gorm:"index" json:"created_at"`

	// Denormalized at ingest time for cheap reads.
	CreatedAtLabel string `gorm:"type:varchar(32)" json:"created_at_label,omitempty"`
	ClinicLabel    string `gorm:"type:varchar(255)" json:"clinic_label,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// TableName overrides the table name
func (DocumentMetadata) TableName() string {
	return "document_metadata"
}

// BeforeCreate hook
func (m *DocumentMetadata) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Requester identifies the professional behind a registry query. It travels
// as query context so the registry can filter visibility server-side.
type Requester struct {
	ProfessionalID   string `json:"professional_id"`
	ProfessionalName string `json:"professional_name,omitempty"`
	TenantID         string `json:"tenant_id"`
	Specialty        string `json:"specialty,omitempty"`
}
