package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/cache"
	"github.com/saludtec/fedhistoria/internal/models"
	"github.com/saludtec/fedhistoria/pkg/docrender"
)

func newDocumentService(syncer MetadataSyncer) (*DocumentService, *fakeDocumentStore, *fakePatientStore) {
	docs := newFakeDocumentStore()
	patients := newFakePatientStore()
	svc := NewDocumentService(docs, patients, syncer, cache.NewMemoryCache(), time.Minute, "http://node-101.example.org")
	return svc, docs, patients
}

func registerPatient(t *testing.T, patients *fakePatientStore, tenantID, naturalID string) {
	t.Helper()
	if err := patients.Create(context.Background(), &models.Patient{TenantID: tenantID, NaturalID: naturalID}); err != nil {
		t.Fatalf("failed to register patient: %v", err)
	}
}

func TestStore_RejectsEmptyPayload(t *testing.T) {
	svc, _, patients := newDocumentService(&fakeSyncer{})
	registerPatient(t, patients, "101", "12345678")

	_, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeConsultation,
	})

	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestStore_RejectsUnregisteredPatient(t *testing.T) {
	svc, _, _ := newDocumentService(&fakeSyncer{})

	_, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeConsultation,
		Body:      "consulta de control",
	})

	var pe *apperrors.PatientNotRegisteredError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PatientNotRegisteredError, got %v", err)
	}
	if pe.PatientID != "12345678" || pe.TenantID != "101" {
		t.Errorf("unexpected error detail: %+v", pe)
	}
}

func TestStore_SyncsMetadataWithAccessURI(t *testing.T) {
	syncer := &fakeSyncer{}
	svc, _, patients := newDocumentService(syncer)
	registerPatient(t, patients, "101", "12345678")

	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID:  "12345678",
		AuthorID:   "prof-9",
		AuthorName: "Dra. Suárez",
		Type:       models.DocumentTypeLabResult,
		Body:       "hemograma completo",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if syncer.count() != 1 {
		t.Fatalf("expected 1 sync, got %d", syncer.count())
	}
	md := syncer.received[0]
	if md.DocumentID != doc.ID.String() {
		t.Errorf("metadata document id = %s, want %s", md.DocumentID, doc.ID)
	}
	if md.PatientID != "12345678" || md.TenantID != "101" {
		t.Errorf("unexpected metadata scope: %+v", md)
	}
	wantURI := "http://node-101.example.org/api/v1/documentos/" + doc.ID.String() + "?tenantId=101"
	if md.AccessURI != wantURI {
		t.Errorf("access URI = %s, want %s", md.AccessURI, wantURI)
	}
}

func TestStore_SyncFailureIsNonFatal(t *testing.T) {
	syncer := &fakeSyncer{err: &apperrors.RegistryUnavailableError{Status: 500}}
	svc, docs, patients := newDocumentService(syncer)
	registerPatient(t, patients, "101", "12345678")

	var hooked *models.DocumentMetadata
	svc.OnSyncFailure = func(_ context.Context, md *models.DocumentMetadata, err error) {
		hooked = md
	}

	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeConsultation,
		Body:      "texto",
	})
	if err != nil {
		t.Fatalf("Store must succeed when only the registry sync fails, got %v", err)
	}

	stored, _ := docs.GetByID(context.Background(), "101", doc.ID)
	if stored == nil {
		t.Fatal("document was not stored locally")
	}
	if hooked == nil || hooked.DocumentID != doc.ID.String() {
		t.Errorf("sync failure hook not invoked with the failed metadata")
	}
}

func TestFetchContent_RendersOnDemand(t *testing.T) {
	svc, _, patients := newDocumentService(&fakeSyncer{})
	registerPatient(t, patients, "101", "12345678")

	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID:   "12345678",
		Type:        models.DocumentTypeConsultation,
		Description: "Consulta de control",
		Body:        "Paciente en buen estado general.",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	content, contentType, err := svc.FetchContent(context.Background(), "101", doc.ID, false)
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("rendered content is empty")
	}
	if !docrender.HasMagic(content) {
		t.Errorf("rendered content does not start with the format signature")
	}
	if contentType != ContentTypePDF {
		t.Errorf("content type = %s, want %s", contentType, ContentTypePDF)
	}
}

func TestFetchContent_PrefersStoredBinary(t *testing.T) {
	svc, _, patients := newDocumentService(&fakeSyncer{})
	registerPatient(t, patients, "101", "12345678")

	stored := []byte("%PDF-1.4 pre-rendered")
	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeImaging,
		Content:   stored,
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	content, _, err := svc.FetchContent(context.Background(), "101", doc.ID, false)
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	if string(content) != string(stored) {
		t.Errorf("expected the stored binary back, got %q", content)
	}
}

func TestFetchContent_NotFound(t *testing.T) {
	svc, _, _ := newDocumentService(&fakeSyncer{})

	_, _, err := svc.FetchContent(context.Background(), "101", uuid.New(), false)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchContent_PersistsWhenRequested(t *testing.T) {
	svc, docs, patients := newDocumentService(&fakeSyncer{})
	registerPatient(t, patients, "101", "12345678")

	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeConsultation,
		Body:      "texto para persistir",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if _, _, err := svc.FetchContent(context.Background(), "101", doc.ID, true); err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}

	stored, _ := docs.GetByID(context.Background(), "101", doc.ID)
	if !stored.HasContent() {
		t.Error("rendered content was not persisted despite persist=true")
	}
}

func TestFetchMetadataAnyTenant_ReportsOwningTenant(t *testing.T) {
	svc, _, patients := newDocumentService(&fakeSyncer{})
	registerPatient(t, patients, "101", "12345678")

	doc, err := svc.Store(context.Background(), "101", &models.DocumentRequest{
		PatientID: "12345678",
		Type:      models.DocumentTypeConsultation,
		Body:      "texto",
	})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Tenant-scoped lookup with the wrong tenant misses.
	missed, err := svc.FetchMetadata(context.Background(), "999", doc.ID)
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if missed != nil {
		t.Fatal("tenant-scoped lookup must not cross partitions")
	}

	found, owningTenant, err := svc.FetchMetadataAnyTenant(context.Background(), "999", doc.ID)
	if err != nil {
		t.Fatalf("FetchMetadataAnyTenant failed: %v", err)
	}
	if found == nil {
		t.Fatal("cross-tenant lookup did not find the document")
	}
	if owningTenant != "101" {
		t.Errorf("owning tenant = %s, want 101", owningTenant)
	}
}

func TestRegisterPatient_Validation(t *testing.T) {
	svc, _, _ := newDocumentService(&fakeSyncer{})

	if _, err := svc.RegisterPatient(context.Background(), "101", &models.PatientRequest{}); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for missing natural id, got %v", err)
	}

	if _, err := svc.RegisterPatient(context.Background(), "101", &models.PatientRequest{NaturalID: "12345678"}); err != nil {
		t.Fatalf("RegisterPatient failed: %v", err)
	}
	_, err := svc.RegisterPatient(context.Background(), "101", &models.PatientRequest{NaturalID: "12345678"})
	if !apperrors.IsValidation(err) || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("expected duplicate registration error, got %v", err)
	}
}
