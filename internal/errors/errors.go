package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a translation error kind.
type ErrorCode string

const (
	ErrEmptyInput      ErrorCode = "EMPTY_INPUT"      // 400
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrMissingAPIKey   ErrorCode = "MISSING_API_KEY"  // 400
	ErrUnknownProvider ErrorCode = "UNKNOWN_PROVIDER" // 400
	ErrInvalidAPIKey   ErrorCode = "INVALID_API_KEY"  // 401
	ErrLengthExceeded  ErrorCode = "LENGTH_EXCEEDED"  // 413
	ErrRateLimited     ErrorCode = "RATE_LIMITED"     // 429
	ErrQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"   // 429 (DeepL answers 456)
	ErrInternal        ErrorCode = "INTERNAL"         // 500
	ErrProviderError   ErrorCode = "PROVIDER_ERROR"   // 502
	ErrNetworkError    ErrorCode = "NETWORK_ERROR"    // 503
)

// QetError represents a structured error with code, status, and the provider it came from.
type QetError struct {
	Code     ErrorCode
	Status   int
	Message  string
	Provider string
	Details  map[string]any

	// Cause is the underlying transport or storage error, if any.
	Cause error
}

// Error implements the error interface.
func (e *QetError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *QetError) Unwrap() error {
	return e.Cause
}

// PublicMessage is Message, except for INTERNAL errors whose message is just
// the underlying cause text (paths, SQL), which is replaced by a generic one.
func (e *QetError) PublicMessage() string {
	if e.Code == ErrInternal && (e.Message == "" || (e.Cause != nil && e.Message == e.Cause.Error())) {
		return "an internal error occurred"
	}
	return e.Message
}

// NewEmptyInput creates a 400 error for blank input text.
func NewEmptyInput(provider string) *QetError {
	return &QetError{
		Code:     ErrEmptyInput,
		Status:   400,
		Message:  "No text selected",
		Provider: provider,
	}
}

// NewLengthExceeded creates a 413 error when text exceeds a character limit.
func NewLengthExceeded(provider string, max, actual int) *QetError {
	return &QetError{
		Code:     ErrLengthExceeded,
		Status:   413,
		Message:  fmt.Sprintf("Selection exceeds %d character limit", max),
		Provider: provider,
		Details:  map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewMissingAPIKey creates a 400 error when no API key is configured for provider.
func NewMissingAPIKey(provider string) *QetError {
	return &QetError{
		Code:     ErrMissingAPIKey,
		Status:   400,
		Message:  fmt.Sprintf("Please set your %s API key in extension options", provider),
		Provider: provider,
	}
}

// NewUnknownProvider creates a 400 error for an unsupported provider name.
func NewUnknownProvider(provider string) *QetError {
	return &QetError{
		Code:     ErrUnknownProvider,
		Status:   400,
		Message:  fmt.Sprintf("Unknown translation provider: %s", provider),
		Provider: provider,
	}
}

// NewInvalidAPIKey creates a 401 error for a rejected API key.
func NewInvalidAPIKey(provider, msg string) *QetError {
	if msg == "" {
		msg = "Invalid API key"
	}
	return &QetError{
		Code:     ErrInvalidAPIKey,
		Status:   401,
		Message:  msg,
		Provider: provider,
	}
}

// NewQuotaExceeded creates a 429 error for an exhausted provider quota.
func NewQuotaExceeded(provider string) *QetError {
	return &QetError{
		Code:     ErrQuotaExceeded,
		Status:   429,
		Message:  "Quota exceeded",
		Provider: provider,
	}
}

// NewRateLimited creates a 429 error for provider throttling.
func NewRateLimited(provider string) *QetError {
	return &QetError{
		Code:     ErrRateLimited,
		Status:   429,
		Message:  "Rate limit exceeded",
		Provider: provider,
	}
}

// NewProviderError creates a 502 error for any other non-2xx provider response.
// An empty msg falls back to a generic failure text.
func NewProviderError(provider string, httpStatus int, msg string) *QetError {
	if msg == "" {
		msg = "Translation failed"
	}
	return &QetError{
		Code:     ErrProviderError,
		Status:   502,
		Message:  msg,
		Provider: provider,
		Details:  map[string]any{"http_status": httpStatus},
	}
}

// NewNetworkError creates a 503 error when no response was received.
func NewNetworkError(provider string, cause error) *QetError {
	msg := "Network error"
	if cause != nil {
		msg = "Network error: " + cause.Error()
	}
	return &QetError{
		Code:     ErrNetworkError,
		Status:   503,
		Message:  msg,
		Provider: provider,
		Cause:    cause,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *QetError {
	return &QetError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *QetError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &QetError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// As extracts a *QetError from err's chain.
func As(err error) (*QetError, bool) {
	var qErr *QetError
	if stderrors.As(err, &qErr) {
		return qErr, true
	}
	return nil, false
}

// Is checks if an error is a QetError with the given code.
func Is(err error, code ErrorCode) bool {
	if qErr, ok := As(err); ok {
		return qErr.Code == code
	}
	return false
}
