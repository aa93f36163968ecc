package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saludtec/fedhistoria/internal/models"
)

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.ClinicalDocument
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[uuid.UUID]*models.ClinicalDocument)}
}

func (f *fakeDocumentStore) Create(_ context.Context, doc *models.ClinicalDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocumentStore) GetByID(_ context.Context, tenantID string, id uuid.UUID) (*models.ClinicalDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStore) GetByIDAnyTenant(_ context.Context, id uuid.UUID) (*models.ClinicalDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStore) SaveContent(_ context.Context, tenantID string, id uuid.UUID, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok && doc.TenantID == tenantID {
		doc.Content = content
	}
	return nil
}

type fakePatientStore struct {
	mu         sync.Mutex
	registered map[string]bool
}

func newFakePatientStore() *fakePatientStore {
	return &fakePatientStore{registered: make(map[string]bool)}
}

func (f *fakePatientStore) Create(_ context.Context, patient *models.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[patient.TenantID+"/"+patient.NaturalID] = true
	return nil
}

func (f *fakePatientStore) Exists(_ context.Context, tenantID, naturalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[tenantID+"/"+naturalID], nil
}

type fakeSyncer struct {
	mu       sync.Mutex
	err      error
	received []*models.DocumentMetadata
}

func (f *fakeSyncer) RegisterMetadata(_ context.Context, md *models.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.received = append(f.received, md)
	return nil
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

type fakeMetadataStore struct {
	mu    sync.Mutex
	byDoc map[string]*models.DocumentMetadata
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{byDoc: make(map[string]*models.DocumentMetadata)}
}

func (f *fakeMetadataStore) Upsert(_ context.Context, md *models.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *md
	if existing, ok := f.byDoc[md.DocumentID]; ok {
		// The registry row keeps its id; every other field is replaced.
		stored.ID = existing.ID
	} else if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	f.byDoc[md.DocumentID] = &stored
	return nil
}

func (f *fakeMetadataStore) GetByDocumentID(_ context.Context, documentID string) (*models.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	md, ok := f.byDoc[documentID]
	if !ok {
		return nil, nil
	}
	copied := *md
	return &copied, nil
}

func (f *fakeMetadataStore) ListByPatient(_ context.Context, patientID string) ([]models.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []models.DocumentMetadata
	for _, md := range f.byDoc {
		if md.PatientID == patientID {
			records = append(records, *md)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

type fakePolicyStore struct {
	mu       sync.Mutex
	policies []models.AccessPolicy
}

func (f *fakePolicyStore) add(p models.AccessPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies = append(f.policies, p)
}

func (f *fakePolicyStore) ListInForceByPatients(_ context.Context, patientIDs []string) ([]models.AccessPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = true
	}
	now := time.Now()
	var out []models.AccessPolicy
	for _, p := range f.policies {
		if wanted[p.PatientID] && p.InForce(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	err     error
	entries []models.AccessAuditEntry
}

func (f *fakeAuditStore) Create(_ context.Context, entry *models.AccessAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) all() []models.AccessAuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AccessAuditEntry, len(f.entries))
	copy(out, f.entries)
	return out
}
