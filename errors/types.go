package errors

import (
	"net/http"
)

// NewError creates a new Error with full control over its fields. For most
// cases use one of the specialized constructors below.
//
// Example:
//
//	err := NewError(InternalError, "Internal server error", 500, "req_123", nil, cause)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError creates a 400 error for a request that failed
// validation, such as a chat message that is empty after sanitizing.
//
// Example:
//
//	err := NewValidationError("req_123", MessageRequired, map[string]interface{}{
//	    "field": "message",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *Error {
	return &Error{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewGenerationError wraps a failure raised while tokenizing, executing or
// decoding. It maps to 500 when it is allowed to reach the HTTP layer.
func NewGenerationError(stage string, err error) *Error {
	return &Error{
		Type:    GenerationError,
		Message: "generation failed at " + stage,
		Code:    http.StatusInternalServerError,
		Details: map[string]interface{}{
			"stage": stage,
		},
		err: err,
	}
}

// NewBootstrapError wraps a failure to load the generation model. The process
// must not start when one of these is returned.
func NewBootstrapError(backend string, err error) *Error {
	return &Error{
		Type:    BootstrapError,
		Message: "failed to load generation model",
		Code:    http.StatusServiceUnavailable,
		Details: map[string]interface{}{
			"backend": backend,
		},
		err: err,
	}
}

// NewInternalError creates the catch-all 500 error. The cause is kept for
// logging; the client only ever sees InternalServerError.
//
// Example:
//
//	err := NewInternalError("req_123", cause)
func NewInternalError(requestID string, err error) *Error {
	return &Error{
		Type:      InternalError,
		Message:   InternalServerError,
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
