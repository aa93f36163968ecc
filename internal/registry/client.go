// Package registry implements the client side of the central document
// registry protocol: metadata registration after a local write and
// policy-filtered queries by patient.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/config"
	"github.com/saludtec/fedhistoria/internal/metrics"
	"github.com/saludtec/fedhistoria/internal/models"
)

// TokenProvider supplies the service credential attached to registry calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Client talks to the central registry on behalf of a peripheral node.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenProvider
}

// NewClient creates a registry client with a bounded request timeout
func NewClient(cfg config.RegistryConfig, tokens TokenProvider) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: tokens,
	}
}

// RegisterMetadata pushes one metadata record to the registry. On an
// authentication rejection the cached token is invalidated and the POST is
// retried exactly once with a fresh token; a second rejection surfaces as
// AuthenticationError. Any other non-2xx status or transport failure
// surfaces as RegistryUnavailableError.
func (c *Client) RegisterMetadata(ctx context.Context, md *models.DocumentMetadata) error {
	status, err := c.postMetadata(ctx, md)
	if err != nil {
		metrics.SyncAttempts.WithLabelValues("unavailable").Inc()
		return &apperrors.RegistryUnavailableError{Cause: err}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		metrics.SyncAttempts.WithLabelValues("auth_retry").Inc()
		log.Warn().Int("status", status).Str("document_id", md.DocumentID).
			Msg("Registry rejected service token, refreshing and retrying once")
		c.tokens.Invalidate()

		status, err = c.postMetadata(ctx, md)
		if err != nil {
			metrics.SyncAttempts.WithLabelValues("unavailable").Inc()
			return &apperrors.RegistryUnavailableError{Cause: err}
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			metrics.SyncAttempts.WithLabelValues("auth_rejected").Inc()
			return &apperrors.AuthenticationError{Status: status}
		}
	}

	if status < 200 || status > 299 {
		metrics.SyncAttempts.WithLabelValues("unavailable").Inc()
		return &apperrors.RegistryUnavailableError{Status: status}
	}

	metrics.SyncAttempts.WithLabelValues("success").Inc()
	return nil
}

// postMetadata performs one POST attempt and returns the response status.
func (c *Client) postMetadata(ctx context.Context, md *models.DocumentMetadata) (int, error) {
	body, err := json.Marshal(md)
	if err != nil {
		return 0, fmt.Errorf("failed to encode metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/metadatos-documento", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuth(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// FetchMetadataByPatient queries the registry by patient, passing the
// requester identity so the registry can filter visibility server-side.
// A 404 means zero documents, not an error.
func (c *Client) FetchMetadataByPatient(ctx context.Context, patientID string, requester models.Requester) ([]models.DocumentMetadata, error) {
	queryURL := fmt.Sprintf("%s/metadatos-documento/paciente/%s", c.baseURL, url.PathEscape(patientID))

	params := url.Values{}
	params.Set("profesionalId", requester.ProfessionalID)
	params.Set("tenantId", requester.TenantID)
	if requester.Specialty != "" {
		params.Set("especialidad", requester.Specialty)
	}
	if requester.ProfessionalName != "" {
		params.Set("nombreProfesional", requester.ProfessionalName)
	}
	queryURL = queryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.addAuth(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &apperrors.RegistryUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []models.DocumentMetadata{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.RegistryUnavailableError{Status: resp.StatusCode}
	}

	var records []models.DocumentMetadata
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return records, nil
}

// SubmitAudit delivers one audit entry, fire-and-forget semantics are the
// caller's responsibility.
func (c *Client) SubmitAudit(ctx context.Context, entry *models.AccessAuditEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registros", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuth(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// addAuth attaches the bearer token when one is available. A node without a
// credential proceeds unauthenticated; the registry decides whether to
// accept it.
func (c *Client) addAuth(ctx context.Context, req *http.Request) {
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
