package dto

import (
	"errors"
	"net/http"

	"github.com/erp/crmsync/internal/domain/integration"
)

// Error codes returned in ErrorInfo.Code
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeUpstreamAuth    = "UPSTREAM_AUTH_ERROR"
	ErrCodeNotConfigured   = "NOT_CONFIGURED"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeUpstream:        http.StatusBadGateway,
	ErrCodeUpstreamAuth:    http.StatusBadGateway,
	ErrCodeNotConfigured:   http.StatusServiceUnavailable,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCodeFor classifies a sync error into an API error code
func ErrorCodeFor(err error) string {
	var crmErr *integration.CRMError
	switch {
	case errors.Is(err, integration.ErrOrderValidation):
		return ErrCodeValidation
	case errors.As(err, &crmErr) && crmErr.IsAuth():
		return ErrCodeUpstreamAuth
	case errors.Is(err, integration.ErrCRMNotConfigured),
		errors.Is(err, integration.ErrOrderSourceNotConfigured):
		return ErrCodeNotConfigured
	case errors.Is(err, integration.ErrCRMUnavailable),
		errors.Is(err, integration.ErrCRMRequestFailed),
		errors.Is(err, integration.ErrCRMInvalidResponse),
		errors.Is(err, integration.ErrCRMAuthFailed),
		errors.Is(err, integration.ErrContactNotResolved),
		errors.Is(err, integration.ErrDealNotResolved),
		errors.Is(err, integration.ErrOrderSourceUnavailable),
		errors.Is(err, integration.ErrOrderSourceInvalidResponse),
		errors.Is(err, integration.ErrFeedUnavailable),
		errors.Is(err, integration.ErrFeedInvalidResponse):
		return ErrCodeUpstream
	default:
		return ErrCodeInternal
	}
}

// FieldDetailsFor extracts per-field details from a validation error
func FieldDetailsFor(err error) []FieldDetail {
	var verr *integration.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	details := make([]FieldDetail, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, FieldDetail{Field: f.Field, Reason: f.Reason})
	}
	return details
}
