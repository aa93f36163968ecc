package cache

import (
	"context"
	"time"
)

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, pattern string) error
}

// ContentKey builds the cache key for rendered document content on a node.
func ContentKey(tenantID, documentID string) string {
	return "node:" + tenantID + ":doc:" + documentID + ":content"
}

// PatientQueryKey builds the cache key for a patient's registry query
// results.
func PatientQueryKey(patientID string) string {
	return "registry:patient:" + patientID
}
