// Package apperrors defines the typed failure taxonomy shared by the node
// and the registry: validation failures propagate to callers, sync failures
// are downgraded at the document-creation boundary, audit failures are
// swallowed at the query boundary.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates caller-fixable bad input (400-class).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("validation failed: %s", e.Msg)
}

// NotFoundError indicates a missing resource (404-class).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// PatientNotRegisteredError indicates a document creation for a patient the
// tenant has no local record of. Documents cannot be orphaned from a known
// patient.
type PatientNotRegisteredError struct {
	PatientID string
	TenantID  string
}

func (e *PatientNotRegisteredError) Error() string {
	return fmt.Sprintf("patient %q is not registered in tenant %q", e.PatientID, e.TenantID)
}

// AuthenticationError indicates a rejected service credential (401/403).
// At the sync boundary it triggers exactly one token-refresh retry.
type AuthenticationError struct {
	Status int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication rejected (status %d)", e.Status)
}

// RegistryUnavailableError indicates the central registry could not take or
// serve a request: transport failure or a non-2xx status outside the
// authentication class. Always non-fatal to the originating local write.
type RegistryUnavailableError struct {
	Status int
	Cause  error
}

func (e *RegistryUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("registry unavailable (status %d): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("registry unavailable (status %d)", e.Status)
}

func (e *RegistryUnavailableError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is a validation-class failure, including
// creation against an unregistered patient.
func IsValidation(err error) bool {
	var ve *ValidationError
	var pe *PatientNotRegisteredError
	return errors.As(err, &ve) || errors.As(err, &pe)
}

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthentication reports whether err is a rejected-credential failure.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsRegistryUnavailable reports whether err is a registry transport/5xx
// failure.
func IsRegistryUnavailable(err error) bool {
	var re *RegistryUnavailableError
	return errors.As(err, &re)
}
