package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON      ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidTimezone  ErrorCode = "validation_invalid_timezone"
	ErrCodeValidationInvalidTimeOfDay ErrorCode = "validation_invalid_time_of_day"
	ErrCodeValidationInvalidDate      ErrorCode = "validation_invalid_date"
	ErrCodeValidationInvalidSchedule  ErrorCode = "validation_invalid_schedule"
	ErrCodeValidationTextTooLong      ErrorCode = "validation_text_too_long"
	ErrCodeValidationInvalidField     ErrorCode = "validation_invalid_field"

	// Configuration (400): a required credential is missing and the caller
	// did not supply an override.
	ErrCodeConfigMissingCredential ErrorCode = "config_missing_credential"

	// Not Found (404)
	ErrCodeNotFoundRoute ErrorCode = "not_found_route"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected     ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamFetchFailed    ErrorCode = "upstream_fetch_failed"
	ErrCodeUpstreamDispatchFailed ErrorCode = "upstream_dispatch_failed"
	ErrCodeUpstreamSegmenter      ErrorCode = "upstream_segmenter_unavailable"
	ErrCodeUpstreamUnavailable    ErrorCode = "upstream_unavailable"

	// Rate Limiting (429): the caller exceeded this service's own limit.
	ErrCodeRateLimitedClient ErrorCode = "rate_limited_client"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "config_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "rate_limited_"):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// RemoteError records a non-2xx answer from a collaborator service.
// StatusCode is zero for transport-level failures (DNS, refused, timeout).
type RemoteError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %s", e.Service, e.Operation, e.Body)
	}
	return fmt.Sprintf("%s %s failed: %d %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

// NewRemoteFetchError builds the error returned when reading from a
// collaborator fails.
func NewRemoteFetchError(remote *RemoteError) *AppError {
	return NewAppErrorWithDetails(
		ErrCodeUpstreamFetchFailed,
		remote.Error(),
		remote,
		map[string]any{
			"status": remote.StatusCode,
			"body":   remote.Body,
		},
	)
}

// NewInvalidScheduleError builds a 400 error for schedule inputs that cannot
// be resolved. Callers pass a more specific validation code where one exists.
func NewInvalidScheduleError(code ErrorCode, message string, err error) *AppError {
	if code == "" {
		code = ErrCodeValidationInvalidSchedule
	}
	return NewAppError(code, message, err)
}

// NewMissingCredentialError reports that neither the server configuration nor
// the caller supplied the credential for the named service.
func NewMissingCredentialError(service string) *AppError {
	return NewAppErrorWithDetails(
		ErrCodeConfigMissingCredential,
		fmt.Sprintf("no %s credential configured; supply one with the request", service),
		nil,
		map[string]any{"service": service},
	)
}
