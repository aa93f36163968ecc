package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentType represents the clinical category of a document
type DocumentType string

const (
	DocumentTypeConsultation DocumentType = "consulta"
	DocumentTypeLabResult    DocumentType = "laboratorio"
	DocumentTypeImaging      DocumentType = "imagenologia"
	DocumentTypePrescription DocumentType = "receta"
	DocumentTypeDischarge    DocumentType = "epicrisis"
	DocumentTypeReferral     DocumentType = "derivacion"
)

// Patient is the local patient record of one clinic. Documents can only be
// created for patients already registered in the owning tenant.
type Patient struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_patients_tenant_natural" json:"tenant_id"`
	NaturalID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_patients_tenant_natural" json:"natural_id"`
	GivenName  string    `gorm:"type:varchar(255)" json:"given_name"`
	FamilyName string    `gorm:"type:varchar(255)" json:"family_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate hook
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ClinicalDocument is one clinical artifact owned by the tenant that created
// it. Content is immutable once stored; re-uploads create new documents.
// Binary content may be absent when Body holds the textual source it can be
// rendered from on demand.
type ClinicalDocument struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    string       `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	PatientID   string       `gorm:"type:varchar(64);not null;index" json:"patient_id"`
	AuthorID    string       `gorm:"type:varchar(64);not null" json:"author_id"`
	AuthorName  string       `gorm:"type:varchar(255)" json:"author_name"`
	Type        DocumentType `gorm:"type:varchar(50);not null;index" json:"type"`
	Description string       `gorm:"type:text" json:"description"`
	Content     []byte       `gorm:"type:bytea" json:"-"`
	Body        string       `gorm:"type:text" json:"-"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (ClinicalDocument) TableName() string {
	return "clinical_documents"
}

// BeforeCreate hook
func (d *ClinicalDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// HasContent reports whether stored binary content is present.
func (d *ClinicalDocument) HasContent() bool {
	return len(d.Content) > 0
}

// DocumentRequest represents a request to create a clinical document
type DocumentRequest struct {
	DocumentID  string       `json:"document_id,omitempty"`
	PatientID   string       `json:"patient_id"`
	AuthorID    string       `json:"author_id"`
	AuthorName  string       `json:"author_name"`
	Type        DocumentType `json:"type"`
	Description string       `json:"description,omitempty"`
	Content     []byte       `json:"content,omitempty"`
	Body        string       `json:"body,omitempty"`
}

// PatientRequest represents a request to register a local patient
type PatientRequest struct {
	NaturalID  string `json:"natural_id"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}
