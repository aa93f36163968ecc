// Package identity handles service-to-service credentials: a peripheral
// node authenticates to the central registry as itself, never as a human
// session.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/saludtec/fedhistoria/internal/config"
	"github.com/saludtec/fedhistoria/internal/metrics"
	"github.com/saludtec/fedhistoria/internal/models"
)

// TokenSource mints and caches the node's service token. The cache is a
// single shared slot; concurrent refreshes are last-writer-wins, which is
// harmless because every minted token is independently valid.
type TokenSource struct {
	cfg    config.ServiceAuthConfig
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	cached models.ServiceToken
}

// NewTokenSource creates a TokenSource from service auth configuration
func NewTokenSource(cfg config.ServiceAuthConfig) *TokenSource {
	return &TokenSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Token returns a service token that is not about to expire. Minting with
// the local signing key is the fast path; the remote token endpoint is the
// fallback. When neither is configured or both fail, an empty token is
// returned and the caller proceeds unauthenticated; that risk is logged
// loudly rather than defaulted silently.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	if cached.Valid(s.now(), s.cfg.SafetyMargin) {
		metrics.TokenRefreshes.WithLabelValues("cache").Inc()
		return cached.Value, nil
	}

	if s.cfg.SigningKey != "" {
		token, err := s.mintLocal()
		if err == nil {
			s.store(token)
			metrics.TokenRefreshes.WithLabelValues("local").Inc()
			return token.Value, nil
		}
		log.Warn().Err(err).Msg("Local token minting failed, trying remote endpoint")
	}

	if s.cfg.TokenURL != "" {
		token, err := s.requestRemote(ctx)
		if err == nil {
			s.store(token)
			metrics.TokenRefreshes.WithLabelValues("remote").Inc()
			return token.Value, nil
		}
		log.Warn().Err(err).Str("token_url", s.cfg.TokenURL).Msg("Remote token request failed")
	}

	metrics.TokenRefreshes.WithLabelValues("none").Inc()
	log.Warn().Msg("No service token available, proceeding unauthenticated")
	return "", nil
}

// Invalidate drops the cached token. Called when the registry rejects the
// credential so the next acquisition mints a fresh one.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.cached = models.ServiceToken{}
	s.mu.Unlock()
}

func (s *TokenSource) store(token models.ServiceToken) {
	s.mu.Lock()
	s.cached = token
	s.mu.Unlock()
}

// mintLocal signs a token with the process-held key.
func (s *TokenSource) mintLocal() (models.ServiceToken, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := models.ServiceClaims{
		ServiceName: s.cfg.ServiceName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.cfg.ServiceID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		return models.ServiceToken{}, fmt.Errorf("failed to sign service token: %w", err)
	}

	return models.ServiceToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// requestRemote exchanges the pre-shared secret for a token.
func (s *TokenSource) requestRemote(ctx context.Context) (models.ServiceToken, error) {
	body, err := json.Marshal(models.ServiceTokenRequest{
		ServiceID:     s.cfg.ServiceID,
		ServiceSecret: s.cfg.ServiceSecret,
		ServiceName:   s.cfg.ServiceName,
	})
	if err != nil {
		return models.ServiceToken{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return models.ServiceToken{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.ServiceToken{}, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ServiceToken{}, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(excerpt))
	}

	var tr models.ServiceTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return models.ServiceToken{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return models.ServiceToken{}, fmt.Errorf("token endpoint returned an empty token")
	}

	ttl := s.cfg.TokenTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}

	return models.ServiceToken{Value: tr.Token, ExpiresAt: s.now().Add(ttl)}, nil
}
