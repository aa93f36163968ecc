package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/models"
)

type contextKey string

const (
	// TenantIDKey carries the active clinic partition identifier.
	TenantIDKey contextKey = "tenant_id"
	// RequesterKey carries the professional identity behind a query.
	RequesterKey contextKey = "requester"
)

// TenantID middleware extracts the clinic identifier from the X-Tenant-ID
// header. Operations that touch tenant-scoped data fail fast here instead of
// silently defaulting to a shared partition.
func TenantID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
		if tenantID == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Missing X-Tenant-ID header")
			http.Error(w, "X-Tenant-ID header is required", http.StatusBadRequest)
			return
		}

		ctx := WithTenant(r.Context(), tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithTenant returns a context scoped to the given tenant. Nested overrides
// derive a new context, so the prior scope is restored when the callee
// returns.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID extracts the tenant ID from context
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// Requester middleware extracts the querying professional's identity from
// headers. Only the professional id is mandatory; name and specialty refine
// policy matching.
func Requester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		professionalID := strings.TrimSpace(r.Header.Get("X-Professional-ID"))
		if professionalID == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Missing X-Professional-ID header")
			http.Error(w, "X-Professional-ID header is required", http.StatusBadRequest)
			return
		}

		tenantID, _ := GetTenantID(r.Context())
		req := models.Requester{
			ProfessionalID:   professionalID,
			ProfessionalName: strings.TrimSpace(r.Header.Get("X-Professional-Name")),
			TenantID:         tenantID,
			Specialty:        strings.TrimSpace(r.Header.Get("X-Specialty")),
		}

		ctx := context.WithValue(r.Context(), RequesterKey, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequester extracts the requester identity from context
func GetRequester(ctx context.Context) (models.Requester, bool) {
	req, ok := ctx.Value(RequesterKey).(models.Requester)
	return req, ok && req.ProfessionalID != ""
}
