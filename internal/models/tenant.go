package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tenant represents a clinic / peripheral-node partition
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ServiceToken is a short-lived credential identifying a peripheral node
// (not a human user) against the central registry.
type ServiceToken struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at the given instant,
// keeping the safety margin clear of the expiry.
func (t ServiceToken) Valid(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Add(margin).Before(t.ExpiresAt)
}

// ServiceClaims are the JWT claims carried by a service token
type ServiceClaims struct {
	ServiceName string `json:"service_name,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// ServiceTokenRequest is the remote token-endpoint request body
type ServiceTokenRequest struct {
	ServiceID     string `json:"serviceId"`
	ServiceSecret string `json:"serviceSecret"`
	ServiceName   string `json:"serviceName"`
}

// ServiceTokenResponse is the remote token-endpoint response body
type ServiceTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}
