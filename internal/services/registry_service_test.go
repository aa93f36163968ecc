package services

import (
	"context"
	"testing"
	"time"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/cache"
	"github.com/saludtec/fedhistoria/internal/models"
)

func newRegistryService() (*RegistryService, *fakeMetadataStore) {
	store := newFakeMetadataStore()
	return NewRegistryService(store, cache.NewMemoryCache(), time.Minute), store
}

func sampleMetadata(documentID string) *models.DocumentMetadata {
	return &models.DocumentMetadata{
		DocumentID: documentID,
		PatientID:  "12345678",
		TenantID:   "101",
		AuthorName: "Dra. Suárez",
		Type:       models.DocumentTypeConsultation,
		AccessURI:  "http://node-101.example.org/api/v1/documentos/" + documentID + "?tenantId=101",
		CreatedAt:  time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestReceive_RequiresPatientID(t *testing.T) {
	svc, _ := newRegistryService()

	md := sampleMetadata("doc-1")
	md.PatientID = ""

	if _, err := svc.Receive(context.Background(), md); !apperrors.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReceive_ComputesDenormalizedFields(t *testing.T) {
	svc, _ := newRegistryService()

	md := sampleMetadata("doc-1")
	if _, err := svc.Receive(context.Background(), md); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	stored, err := svc.QueryByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("QueryByID failed: %v", err)
	}
	if stored.CreatedAtLabel != "14/03/2026 10:30" {
		t.Errorf("created-at label = %q", stored.CreatedAtLabel)
	}
	if stored.ClinicLabel != "Clínica 101" {
		t.Errorf("clinic label = %q", stored.ClinicLabel)
	}
	if stored.ReceivedAt.IsZero() {
		t.Error("received-at not stamped")
	}
}

func TestReceive_IdempotentByDocumentID(t *testing.T) {
	svc, _ := newRegistryService()

	first := sampleMetadata("doc-1")
	firstID, err := svc.Receive(context.Background(), first)
	if err != nil {
		t.Fatalf("first Receive failed: %v", err)
	}

	second := sampleMetadata("doc-1")
	second.Description = "informe corregido"
	secondID, err := svc.Receive(context.Background(), second)
	if err != nil {
		t.Fatalf("second Receive failed: %v", err)
	}

	if firstID != secondID {
		t.Errorf("registry id changed on re-delivery: %s != %s", firstID, secondID)
	}

	records, err := svc.QueryByPatient(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("QueryByPatient failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record after re-delivery, got %d", len(records))
	}
	if records[0].Description != "informe corregido" {
		t.Errorf("re-delivery fields did not win: %q", records[0].Description)
	}
}

func TestQueryByPatient_OrderedAndCached(t *testing.T) {
	svc, store := newRegistryService()

	older := sampleMetadata("doc-old")
	older.CreatedAt = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	newer := sampleMetadata("doc-new")
	newer.CreatedAt = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for _, md := range []*models.DocumentMetadata{newer, older} {
		if _, err := svc.Receive(context.Background(), md); err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
	}

	records, err := svc.QueryByPatient(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("QueryByPatient failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].DocumentID != "doc-old" || records[1].DocumentID != "doc-new" {
		t.Errorf("records not ordered by creation time: %s, %s", records[0].DocumentID, records[1].DocumentID)
	}

	// A cached repeat does not touch the store.
	delete(store.byDoc, "doc-old")
	cached, err := svc.QueryByPatient(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("cached QueryByPatient failed: %v", err)
	}
	if len(cached) != 2 {
		t.Errorf("expected cached result with 2 records, got %d", len(cached))
	}

	// An ingest for the patient invalidates the cache.
	if _, err := svc.Receive(context.Background(), sampleMetadata("doc-3")); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	fresh, err := svc.QueryByPatient(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("QueryByPatient after ingest failed: %v", err)
	}
	if len(fresh) != 2 { // doc-old was deleted from the store above
		t.Errorf("expected fresh result with 2 records, got %d", len(fresh))
	}
}

func TestQueryByID_MissingIsNil(t *testing.T) {
	svc, _ := newRegistryService()

	md, err := svc.QueryByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("QueryByID failed: %v", err)
	}
	if md != nil {
		t.Errorf("expected nil for a missing record, got %+v", md)
	}
}
