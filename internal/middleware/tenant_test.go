package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saludtec/fedhistoria/internal/identity"
	"github.com/saludtec/fedhistoria/internal/models"
)

func TestTenantID_InjectsTenant(t *testing.T) {
	var got string
	handler := TenantID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetTenantID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documentos", nil)
	req.Header.Set("X-Tenant-ID", "101")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != "101" {
		t.Errorf("tenant = %q, want 101", got)
	}
}

func TestTenantID_RejectsMissingHeader(t *testing.T) {
	handler := TenantID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a tenant")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documentos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWithTenant_NestedOverrideIsScoped(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	outer := WithTenant(req.Context(), "101")
	inner := WithTenant(outer, "202")

	if id, _ := GetTenantID(inner); id != "202" {
		t.Errorf("inner tenant = %q, want 202", id)
	}
	if id, _ := GetTenantID(outer); id != "101" {
		t.Errorf("outer tenant = %q, want 101", id)
	}
}

func TestRequester_BuildsIdentityFromHeaders(t *testing.T) {
	var got models.Requester
	handler := TenantID(Requester(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetRequester(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pacientes/12345678-9/documentos", nil)
	req.Header.Set("X-Tenant-ID", "202")
	req.Header.Set("X-Professional-ID", "MED-9")
	req.Header.Set("X-Professional-Name", "Dra. Soto")
	req.Header.Set("X-Specialty", "cardiologia")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want := models.Requester{
		ProfessionalID:   "MED-9",
		ProfessionalName: "Dra. Soto",
		TenantID:         "202",
		Specialty:        "cardiologia",
	}
	if got != want {
		t.Errorf("requester = %+v, want %+v", got, want)
	}
}

func TestRequester_RejectsMissingProfessional(t *testing.T) {
	handler := Requester(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a professional id")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServiceAuth_AcceptsValidToken(t *testing.T) {
	issuer := identity.NewIssuer([]byte("key"), "registry", time.Hour,
		map[string]string{"node-101": "secret"})
	resp, err := issuer.Issue(models.ServiceTokenRequest{ServiceID: "node-101", ServiceSecret: "secret"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	called := false
	handler := ServiceAuth(issuer, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/metadatos-documento", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
}

func TestServiceAuth_RejectsWhenRequired(t *testing.T) {
	issuer := identity.NewIssuer([]byte("key"), "registry", time.Hour, nil)
	handler := ServiceAuth(issuer, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/metadatos-documento", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServiceAuth_RejectsBadTokenEvenWhenOptional(t *testing.T) {
	issuer := identity.NewIssuer([]byte("key"), "registry", time.Hour, nil)
	handler := ServiceAuth(issuer, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a forged token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/metadatos-documento", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServiceAuth_PassThroughWhenOptional(t *testing.T) {
	issuer := identity.NewIssuer([]byte("key"), "registry", time.Hour, nil)
	called := false
	handler := ServiceAuth(issuer, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/metadatos-documento", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
}
