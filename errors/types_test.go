package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewValidationError(t *testing.T) {
	requestID := "test-456"
	details := map[string]interface{}{
		"field": "message",
	}

	err := NewValidationError(requestID, MessageRequired, details)

	if err.Type != ValidationError {
		t.Errorf("Expected error type %v, got %v", ValidationError, err.Type)
	}
	if err.Message != MessageRequired {
		t.Errorf("Expected message %v, got %v", MessageRequired, err.Message)
	}
	if err.Code != http.StatusBadRequest {
		t.Errorf("Expected code %v, got %v", http.StatusBadRequest, err.Code)
	}
	if err.RequestID != requestID {
		t.Errorf("Expected requestID %v, got %v", requestID, err.RequestID)
	}
	if err.Details["field"] != "message" {
		t.Errorf("Expected details field message, got %v", err.Details["field"])
	}
}

func TestNewGenerationError(t *testing.T) {
	cause := errors.New("model exploded")
	err := NewGenerationError("execute", cause)

	if err.Type != GenerationError {
		t.Errorf("Expected error type %v, got %v", GenerationError, err.Type)
	}
	if err.Details["stage"] != "execute" {
		t.Errorf("Expected stage execute, got %v", err.Details["stage"])
	}
	if err.Unwrap() != cause {
		t.Errorf("Expected inner error %v, got %v", cause, err.Unwrap())
	}
}

func TestNewBootstrapError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBootstrapError("remote", cause)

	if err.Type != BootstrapError {
		t.Errorf("Expected error type %v, got %v", BootstrapError, err.Type)
	}
	if err.Details["backend"] != "remote" {
		t.Errorf("Expected backend remote, got %v", err.Details["backend"])
	}
	if !errors.Is(err, cause) {
		t.Error("Expected bootstrap error to wrap its cause")
	}
}

func TestNewInternalError(t *testing.T) {
	err := NewInternalError("test-789", errors.New("boom"))

	if err.Code != http.StatusInternalServerError {
		t.Errorf("Expected code %v, got %v", http.StatusInternalServerError, err.Code)
	}
	if err.Message != InternalServerError {
		t.Errorf("Expected message %v, got %v", InternalServerError, err.Message)
	}
}
