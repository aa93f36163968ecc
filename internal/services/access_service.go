package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/metrics"
	"github.com/saludtec/fedhistoria/internal/models"
)

// auditWriteTimeout bounds one detached audit write.
const auditWriteTimeout = 5 * time.Second

// AccessService filters registry read results through the access policies
// in force and audits every access attempt. Filtering is mandatory on every
// read path that crosses clinic boundaries.
type AccessService struct {
	policies PolicyStore
	audit    AuditStore
	now      func() time.Time

	wg sync.WaitGroup
}

// NewAccessService creates a new access service
func NewAccessService(policies PolicyStore, audit AuditStore) *AccessService {
	return &AccessService{
		policies: policies,
		audit:    audit,
		now:      time.Now,
	}
}

// FilterVisible narrows records to those the requester holds an in-force
// policy for: matching patient, authorizing clinic equal to the record's
// tenant, professional match or wildcard, and specialty scope when the
// policy carries one.
func (s *AccessService) FilterVisible(ctx context.Context, records []models.DocumentMetadata, requester models.Requester) ([]models.DocumentMetadata, error) {
	if len(records) == 0 {
		return []models.DocumentMetadata{}, nil
	}

	patientIDs := make([]string, 0, 1)
	seen := make(map[string]bool)
	for _, rec := range records {
		if !seen[rec.PatientID] {
			seen[rec.PatientID] = true
			patientIDs = append(patientIDs, rec.PatientID)
		}
	}

	policies, err := s.policies.ListInForceByPatients(ctx, patientIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := make([]models.DocumentMetadata, 0, len(records))
	for _, rec := range records {
		if s.recordVisible(rec, requester, policies, now) {
			metrics.AccessChecks.WithLabelValues("visible").Inc()
			if rec.BreakingGlass {
				log.Warn().
					Str("document_id", rec.DocumentID).
					Str("patient_id", rec.PatientID).
					Str("professional_id", requester.ProfessionalID).
					Msg("Breaking-the-glass record served")
			}
			visible = append(visible, rec)
		} else {
			metrics.AccessChecks.WithLabelValues("denied").Inc()
		}
	}

	return visible, nil
}

// recordVisible checks whether any in-force policy grants the requester
// this record.
func (s *AccessService) recordVisible(rec models.DocumentMetadata, requester models.Requester, policies []models.AccessPolicy, now time.Time) bool {
	for _, p := range policies {
		if !p.InForce(now) {
			continue
		}
		if p.PatientID != rec.PatientID {
			continue
		}
		if p.AuthorizingClinic != rec.TenantID {
			continue
		}
		if p.DocumentID != "" && p.DocumentID != rec.DocumentID {
			continue
		}
		if p.ProfessionalID != models.ProfessionalWildcard && p.ProfessionalID != requester.ProfessionalID {
			continue
		}
		if specialties := p.SpecialtyList(); len(specialties) > 0 {
			match := false
			for _, sp := range specialties {
				if sp == requester.Specialty {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		return true
	}
	return false
}

// RecordAccess appends an audit entry asynchronously. The read response
// never blocks on, nor fails because of, audit delivery: failures are
// logged, counted, and swallowed.
func (s *AccessService) RecordAccess(requester models.Requester, patientID, documentID string, outcome models.AccessOutcome, reason string, breakingGlass bool) {
	entry := &models.AccessAuditEntry{
		ProfessionalID:   requester.ProfessionalID,
		ProfessionalName: requester.ProfessionalName,
		TenantID:         requester.TenantID,
		PatientID:        patientID,
		DocumentID:       documentID,
		Outcome:          outcome,
		Reason:           reason,
		BreakingGlass:    breakingGlass,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.AuditDropped.Inc()
				log.Error().Interface("error", r).Msg("Panic during audit write")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		if err := s.Append(ctx, entry); err != nil {
			metrics.AuditDropped.Inc()
			log.Error().Err(err).
				Str("professional_id", entry.ProfessionalID).
				Str("patient_id", entry.PatientID).
				Str("outcome", string(entry.Outcome)).
				Msg("Audit entry dropped")
		}
	}()
}

// Append writes one audit entry synchronously. Used by the audit ingestion
// endpoint and by RecordAccess's detached writer.
func (s *AccessService) Append(ctx context.Context, entry *models.AccessAuditEntry) error {
	return s.audit.Create(ctx, entry)
}

// Wait blocks until in-flight audit writes finish. Called on shutdown and
// by tests.
func (s *AccessService) Wait() {
	s.wg.Wait()
}
