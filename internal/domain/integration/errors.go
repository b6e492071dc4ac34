package integration

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var (
	// Validation errors
	ErrOrderValidation = errors.New("integration: invalid order")

	// CRM errors
	ErrCRMNotConfigured   = errors.New("integration: crm not configured")
	ErrCRMUnavailable     = errors.New("integration: crm temporarily unavailable")
	ErrCRMRequestFailed   = errors.New("integration: crm request failed")
	ErrCRMInvalidResponse = errors.New("integration: invalid crm response")
	ErrCRMAuthFailed      = errors.New("integration: crm authentication failed")

	// Reconciliation errors
	ErrContactNotResolved = errors.New("integration: contact not found after create")
	ErrDealNotResolved    = errors.New("integration: deal not found after create")

	// Order source errors
	ErrOrderSourceNotConfigured   = errors.New("integration: order source not configured")
	ErrOrderSourceUnavailable     = errors.New("integration: order source unavailable")
	ErrOrderSourceInvalidResponse = errors.New("integration: invalid order source response")

	// Rate feed errors
	ErrFeedUnavailable     = errors.New("integration: rate feed unavailable")
	ErrFeedInvalidResponse = errors.New("integration: invalid rate feed response")
	ErrInvalidRateValue    = errors.New("integration: invalid rate value")
	ErrInvalidCurrencyCode = errors.New("integration: invalid currency code")

	// Userfield errors
	ErrInvalidUserFieldName = errors.New("integration: invalid userfield name")
)

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// FieldError describes one rejected field of an incoming order.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when an incoming order is missing fields or
// carries a field of the wrong shape. It matches ErrOrderValidation.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrOrderValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrOrderValidation.Error(), strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrOrderValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrOrderValidation
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

// IsValidationError reports whether err is (or wraps) an order validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrOrderValidation)
}

// ---------------------------------------------------------------------------
// CRMError
// ---------------------------------------------------------------------------

// CRMError carries the error envelope returned by the CRM REST API.
// It unwraps to ErrCRMAuthFailed for credential problems and to
// ErrCRMRequestFailed otherwise.
type CRMError struct {
	Method      string
	StatusCode  int
	Code        string
	Description string
}

// Error implements the error interface
func (e *CRMError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Unwrap().Error(), e.Method)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}

// Unwrap returns the sentinel this error belongs to.
func (e *CRMError) Unwrap() error {
	if e.IsAuth() {
		return ErrCRMAuthFailed
	}
	return ErrCRMRequestFailed
}

// IsAuth reports whether the CRM rejected the webhook credentials.
func (e *CRMError) IsAuth() bool {
	if e.StatusCode == 401 {
		return true
	}
	switch e.Code {
	case "expired_token", "invalid_token", "INVALID_CREDENTIALS", "NO_AUTH_FOUND", "insufficient_scope":
		return true
	}
	return false
}
