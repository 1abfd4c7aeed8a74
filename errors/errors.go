// Package errors provides the error taxonomy and JSON error responses used by
// the parley chat server. Every failure a client can observe is one of the
// ErrorType values below and is rendered with the single wire shape
//
//	{"error": "<message>"}
//
// together with the HTTP status carried by the error.
//
// Basic usage:
//
//	// Reject an empty chat message
//	errors.WriteError(w, errors.NewValidationError(requestID, "Message is required", nil))
//
//	// Answer an unexpected failure
//	errors.WriteError(w, errors.NewInternalError(requestID, err))
//
// The package also owns the process-wide default zap logger, which can be
// replaced at startup with SetLogger.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger replaces DefaultLogger. A nil logger is ignored so logging
// cannot be disabled by accident.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes failures of the chat pipeline.
type ErrorType string

const (
	// ValidationError is an empty or missing chat message.
	ValidationError ErrorType = "validation_error"

	// GenerationError is a failure inside tokenize, execute or decode.
	GenerationError ErrorType = "generation_error"

	// BootstrapError is a failure to load the generation model at startup.
	BootstrapError ErrorType = "bootstrap_error"

	// InternalError is anything else that escapes request handling.
	InternalError ErrorType = "internal_error"
)

// Client-facing messages. They are part of the HTTP contract.
const (
	MessageRequired     = "Message is required"
	InternalServerError = "Internal server error"
)

// Error is the error type carried through the server. It keeps the category,
// the client-facing message and the HTTP status together with the underlying
// cause, which is logged but never written to the client.
type Error struct {
	// Type categorizes the error for logging and metrics
	Type ErrorType `json:"-"`

	// Message is the client-facing description
	Message string `json:"error"`

	// Code is the HTTP status code
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"-"`

	// Details contains additional context for logs
	Details map[string]interface{} `json:"-"`

	err error
}

// Error implements the error interface. It returns a string that
// combines the error type, message, and underlying error (if any).
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Is matches on Type only, so errors.Is(err, &Error{Type: ValidationError})
// works regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError writes err as {"error": message} with err.Code as status.
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Message})
}
