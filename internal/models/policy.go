package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyStatus represents the lifecycle state of an access policy.
// Expiry is derived from ExpiresAt, not an explicit transition.
type PolicyStatus string

const (
	PolicyStatusActive  PolicyStatus = "active"
	PolicyStatusRevoked PolicyStatus = "revoked"
)

// ProfessionalWildcard grants visibility to any requesting professional.
const ProfessionalWildcard = "*"

// AccessPolicy grants a professional (optionally scoped to a specialty set)
// visibility into one patient's metadata originating from the authorizing
// clinic, optionally time-bounded.
type AccessPolicy struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID         string       `gorm:"type:varchar(64);not null;index" json:"patient_id"`
	AuthorizingClinic string       `gorm:"type:varchar(64);not null;index" json:"authorizing_clinic"`
	ProfessionalID    string       `gorm:"type:varchar(64);not null" json:"professional_id"`
	Specialties       string       `gorm:"type:text" json:"specialties,omitempty"` // comma-separated; empty means any
	DocumentID        string       `gorm:"type:varchar(64)" json:"document_id,omitempty"`
	Status            PolicyStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	GrantedBy         string       `gorm:"type:varchar(64)" json:"granted_by,omitempty"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
	RevokedAt         *time.Time   `json:"revoked_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// TableName overrides the table name
func (AccessPolicy) TableName() string {
	return "access_policies"
}

// BeforeCreate hook
func (p *AccessPolicy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// InForce reports whether the policy grants anything at the given instant.
func (p *AccessPolicy) InForce(now time.Time) bool {
	if p.Status != PolicyStatusActive {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// SpecialtyList splits the stored specialty set. An empty list means the
// policy is not specialty-scoped.
func (p *AccessPolicy) SpecialtyList() []string {
	if strings.TrimSpace(p.Specialties) == "" {
		return nil
	}
	parts := strings.Split(p.Specialties, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PolicyRequest represents a request to grant an access policy
type PolicyRequest struct {
	PatientID         string     `json:"patient_id"`
	AuthorizingClinic string     `json:"authorizing_clinic"`
	ProfessionalID    string     `json:"professional_id"`
	Specialties       []string   `json:"specialties,omitempty"`
	DocumentID        string     `json:"document_id,omitempty"`
	GrantedBy         string     `json:"granted_by,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}
