package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessOutcome is the result of one access attempt.
type AccessOutcome string

const (
	AccessOutcomeSuccess AccessOutcome = "success"
	AccessOutcomeDenied  AccessOutcome = "denied"
)

// AccessAuditEntry records one metadata access or query attempt.
// Append-only; entries are never updated or deleted.
type AccessAuditEntry struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProfessionalID   string        `gorm:"type:varchar(64);not null;index" json:"professional_id"`
	ProfessionalName string        `gorm:"type:varchar(255)" json:"professional_name,omitempty"`
	TenantID         string        `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	PatientID        string        `gorm:"type:varchar(64);not null;index" json:"patient_id"`
	DocumentID       string        `gorm:"type:varchar(64);index" json:"document_id,omitempty"` // empty for general searches
	DocumentType     string        `gorm:"type:varchar(50)" json:"document_type,omitempty"`
	Outcome          AccessOutcome `gorm:"type:varchar(20);not null;index" json:"outcome"`
	Reason           string        `gorm:"type:text" json:"reason,omitempty"`
	BreakingGlass    bool          `gorm:"default:false;index" json:"breaking_glass"`
	CreatedAt        time.Time     `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AccessAuditEntry) TableName() string {
	return "access_audit_entries"
}

// BeforeCreate hook
func (a *AccessAuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
