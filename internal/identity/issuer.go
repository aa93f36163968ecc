package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saludtec/fedhistoria/internal/apperrors"
	"github.com/saludtec/fedhistoria/internal/models"
)

// Issuer verifies bearer tokens presented to the registry and issues
// tokens to nodes that authenticate with a pre-shared secret.
type Issuer struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	secrets    map[string]string // serviceID -> secret
	now        func() time.Time
}

// NewIssuer creates an Issuer with the shared signing key and the known
// service credentials.
func NewIssuer(signingKey []byte, issuer string, tokenTTL time.Duration, secrets map[string]string) *Issuer {
	return &Issuer{
		signingKey: signingKey,
		issuer:     issuer,
		tokenTTL:   tokenTTL,
		secrets:    secrets,
		now:        time.Now,
	}
}

// Verify parses a bearer token and returns its claims.
func (i *Issuer) Verify(tokenString string) (*models.ServiceClaims, error) {
	claims := &models.ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, &apperrors.AuthenticationError{Status: 401}
	}
	return claims, nil
}

// Issue authenticates a service by its pre-shared secret and returns a
// fresh token response.
func (i *Issuer) Issue(req models.ServiceTokenRequest) (*models.ServiceTokenResponse, error) {
	if req.ServiceID == "" || req.ServiceSecret == "" {
		return nil, &apperrors.ValidationError{Field: "serviceId", Msg: "service id and secret are required"}
	}
	secret, ok := i.secrets[req.ServiceID]
	if !ok || secret != req.ServiceSecret {
		return nil, &apperrors.AuthenticationError{Status: 401}
	}

	now := i.now()
	claims := models.ServiceClaims{
		ServiceName: req.ServiceName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.ServiceID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign service token: %w", err)
	}

	return &models.ServiceTokenResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(i.tokenTTL.Seconds()),
	}, nil
}
