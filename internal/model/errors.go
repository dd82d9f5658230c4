package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBackend             = errors.New("backend request failed")
	ErrIdentityMismatch    = errors.New("identity unknown to backend")
	ErrPaymentConfig       = errors.New("payment configuration missing")
	ErrPaymentVerification = errors.New("payment verification failed")
	ErrTimeout             = errors.New("request timed out")
)

// Error is the structured error carried across component boundaries.
// Implements error interface and supports unwrapping.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"` // Set for validation errors only
	StatusCode int    `json:"-"`               // HTTP status, not serialized
	Err        error  `json:"-"`               // Wrapped error, not serialized
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotAuthenticatedError creates a 401 error for operations that require a
// session. The caller decides whether to redirect to sign-in.
func NewNotAuthenticatedError(op string) *Error {
	return &Error{
		Code:       "NOT_AUTHENTICATED",
		Message:    fmt.Sprintf("%s requires a signed-in session", op),
		StatusCode: 401,
		Err:        ErrNotAuthenticated,
	}
}

// NewValidationError creates a 400 error for invalid local input.
// Validation errors never reach the network.
func NewValidationError(field, reason string) *Error {
	return &Error{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		Field:      field,
		StatusCode: 400,
		Err:        ErrInvalidInput,
	}
}

// NewBackendError creates an error for a non-2xx backend response.
// message should be the server-supplied text when present; pass "" to fall
// back to a generic status-derived message.
func NewBackendError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("backend returned status %d", status)
	}
	return &Error{
		Code:       "BACKEND_ERROR",
		Message:    message,
		StatusCode: status,
		Err:        ErrBackend,
	}
}

// NewUpstreamError creates a 502 error for transport-level backend failures
// (connection refused, TLS failure) where no HTTP status exists.
func NewUpstreamError(err error) *Error {
	return &Error{
		Code:       "BACKEND_ERROR",
		Message:    "backend request failed",
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrBackend, err),
	}
}

// NewIdentityMismatchError signals a session valid at the identity provider
// but absent at the backend. Forces sign-out and redirect to registration.
func NewIdentityMismatchError() *Error {
	return &Error{
		Code:       "IDENTITY_MISMATCH",
		Message:    "account is not registered with the store",
		StatusCode: 403,
		Err:        ErrIdentityMismatch,
	}
}

// NewPaymentConfigError is terminal and non-retryable: it indicates a
// deployment misconfiguration (missing payment widget key), not a transient
// failure.
func NewPaymentConfigError(reason string) *Error {
	return &Error{
		Code:       "PAYMENT_CONFIG_ERROR",
		Message:    reason,
		StatusCode: 500,
		Err:        ErrPaymentConfig,
	}
}

// NewPaymentVerificationError is terminal for a checkout attempt. Funds may
// have moved; the user must contact support. Never retried, since retried
// verification can double-process depending on backend idempotency.
func NewPaymentVerificationError() *Error {
	return &Error{
		Code:       "PAYMENT_VERIFICATION_FAILED",
		Message:    "payment could not be verified, contact support",
		StatusCode: 402,
		Err:        ErrPaymentVerification,
	}
}

// NewTimeoutError creates a 504 error for requests that exceeded the client
// deadline.
func NewTimeoutError(op string) *Error {
	return &Error{
		Code:       "TIMEOUT",
		Message:    fmt.Sprintf("%s timed out", op),
		StatusCode: 504,
		Err:        ErrTimeout,
	}
}
