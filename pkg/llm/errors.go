package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error code constants for standardized error handling across providers.
// Providers map their native errors to one of these codes.
const (
	ErrCodeTimeout          = "timeout"
	ErrCodeTransport        = "transport_error"
	ErrCodeHTTPStatus       = "http_status"
	ErrCodeExhaustedRetries = "exhausted_retries"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidResponse  = "invalid_response"

	// Refinements of ErrCodeHTTPStatus. Errors carrying these codes always
	// have a non-zero Status and satisfy IsHTTPError.
	ErrCodeAuthentication = "authentication_error"
	ErrCodeRateLimit      = "rate_limit_exceeded"
	ErrCodeModelNotFound  = "model_not_found"
	ErrCodeServerError    = "server_error"
)

// ProviderError represents a typed error from a generation provider.
// Use the IsXxx helpers below to classify errors without inspecting fields.
type ProviderError struct {
	Code     string // One of the ErrCode* constants.
	Message  string // Human-readable description.
	Status   int    // HTTP status for HTTP errors, zero otherwise.
	Body     string // Response body text for HTTP errors.
	Attempts int    // Number of attempts made, for exhausted retries.
	Err      error  // Underlying error (may be nil).
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a typed provider error.
func NewProviderError(code, message string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: message, Err: err}
}

// NewTimeoutError reports an attempt that did not complete in time.
func NewTimeoutError(err error) *ProviderError {
	return &ProviderError{Code: ErrCodeTimeout, Message: "request timed out", Err: err}
}

// NewTransportError reports a failure to reach the backend or read its response.
func NewTransportError(message string, err error) *ProviderError {
	return &ProviderError{Code: ErrCodeTransport, Message: message, Err: err}
}

// NewHTTPError reports a non-2xx response. The code is refined from the
// status where a more specific one applies.
func NewHTTPError(status int, body string) *ProviderError {
	code := ErrCodeHTTPStatus
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrCodeAuthentication
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	case status == http.StatusNotFound && strings.Contains(strings.ToLower(body), "model"):
		code = ErrCodeModelNotFound
	case status >= 500:
		code = ErrCodeServerError
	}

	msg := fmt.Sprintf("unexpected status %d", status)
	if body != "" {
		msg += ": " + truncate(body, 512)
	}
	return &ProviderError{Code: code, Message: msg, Status: status, Body: body}
}

// NewExhaustedRetriesError reports that every allowed attempt failed.
// last is the error from the final attempt.
func NewExhaustedRetriesError(attempts int, last error) *ProviderError {
	return &ProviderError{
		Code:     ErrCodeExhaustedRetries,
		Message:  fmt.Sprintf("request failed after %d attempts", attempts),
		Attempts: attempts,
		Err:      last,
	}
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsTransportError reports whether err is a network-level failure.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// IsHTTPError reports whether err is a non-2xx response from the backend.
func IsHTTPError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status != 0
}

// IsExhaustedRetries reports whether err means all retry attempts failed.
func IsExhaustedRetries(err error) bool {
	return hasCode(err, ErrCodeExhaustedRetries)
}

// IsAuthenticationError reports whether err is an authentication failure.
func IsAuthenticationError(err error) bool {
	return hasCode(err, ErrCodeAuthentication)
}

// IsRateLimitError reports whether err is a rate-limit error.
func IsRateLimitError(err error) bool {
	return hasCode(err, ErrCodeRateLimit)
}

// IsModelNotFoundError reports whether err is a model-not-found error.
func IsModelNotFoundError(err error) bool {
	return hasCode(err, ErrCodeModelNotFound)
}

// IsRetryable reports whether the error is transient and the call may succeed on retry.
// Only timeouts and transport failures qualify; HTTP status errors never do.
func IsRetryable(err error) bool {
	return IsTimeoutError(err) || IsTransportError(err)
}

// HTTPStatus returns the backend status carried by err, or zero.
func HTTPStatus(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

func hasCode(err error, code string) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
