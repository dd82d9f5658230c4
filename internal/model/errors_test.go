package model

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without wrapped error",
			err: &Error{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &Error{Code: "TEST", Message: "test", Err: underlying}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	errNoWrap := &Error{Code: "TEST", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestConstructors_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		sentinel error
		status   int
	}{
		{"not authenticated", NewNotAuthenticatedError("addToCart"), ErrNotAuthenticated, 401},
		{"validation", NewValidationError("phone", "must be 10 digits"), ErrInvalidInput, 400},
		{"backend", NewBackendError(409, "item out of stock"), ErrBackend, 409},
		{"upstream", NewUpstreamError(errors.New("dial tcp: refused")), ErrBackend, 502},
		{"identity mismatch", NewIdentityMismatchError(), ErrIdentityMismatch, 403},
		{"payment config", NewPaymentConfigError("payment key id not configured"), ErrPaymentConfig, 500},
		{"payment verification", NewPaymentVerificationError(), ErrPaymentVerification, 402},
		{"timeout", NewTimeoutError("getCart"), ErrTimeout, 504},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.status)
			}
		})
	}
}

func TestNewBackendError_MessagePreference(t *testing.T) {
	// Server-supplied text wins
	err := NewBackendError(400, "size required")
	if err.Message != "size required" {
		t.Errorf("Message = %q, want server text", err.Message)
	}

	// Empty server text falls back to status-derived message
	err = NewBackendError(500, "")
	if err.Message != "backend returned status 500" {
		t.Errorf("Message = %q, want status-derived fallback", err.Message)
	}
}

func TestNewValidationError_Field(t *testing.T) {
	err := NewValidationError("pincode", "must be 6 digits")
	if err.Field != "pincode" {
		t.Errorf("Field = %q, want %q", err.Field, "pincode")
	}
	if err.Message != "invalid pincode: must be 6 digits" {
		t.Errorf("Message = %q", err.Message)
	}
}
