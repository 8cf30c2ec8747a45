// Package errors provides standardized error handling for the intent
// resolution pipeline and its collaborators.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pipeline errors
	ErrCodeInputEmpty            ErrorCode = "INPUT_EMPTY"
	ErrCodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
	ErrCodeClassifierMalformed   ErrorCode = "CLASSIFIER_MALFORMED"
	ErrCodeLowConfidence         ErrorCode = "LOW_CONFIDENCE"
	ErrCodeUnexpectedFailure     ErrorCode = "UNEXPECTED_FAILURE"

	// Store errors
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeInvoiceNotFound          ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeInvoiceCreateFailed      ErrorCode = "INVOICE_CREATE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInputEmptyError creates a non-retryable error for blank utterances.
// Rejected before any state change; no user-visible error surface required.
func NewInputEmptyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeInputEmpty,
		Message:   "Utterance is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierUnavailableError creates a retryable transport error for the model call.
func NewClassifierUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierUnavailable,
		Message:   "Classifier service unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierMalformedError creates a non-retryable error for unparseable
// model output. The raw text is preserved in metadata for diagnostics.
func NewClassifierMalformedError(raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierMalformed,
		Message:   "Bad JSON from model",
		Retryable: false,
		Metadata:  map[string]interface{}{"raw": raw},
		Timestamp: time.Now().UTC(),
	}
}

// NewLowConfidenceError marks a valid response below the confidence
// threshold. Treated as a normal outcome, not an exception.
func NewLowConfidenceError(confidence float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeLowConfidence,
		Message:   "Classification below confidence threshold",
		Details:   fmt.Sprintf("confidence: %.2f", confidence),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnexpectedFailureError wraps any error that has no dedicated code.
func NewUnexpectedFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnexpectedFailure,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", queryName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvoiceNotFoundError creates a non-retryable lookup error.
func NewInvoiceNotFoundError(businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvoiceNotFound,
		Message:   "Invoice not found",
		Details:   fmt.Sprintf("businessId: %s", businessID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvoiceCreateFailedError creates a retryable insert error.
func NewInvoiceCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvoiceCreateFailed,
		Message:   "Failed to create invoice",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the status the inbound API returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInputEmpty:
		return http.StatusBadRequest
	case ErrCodeClassifierMalformed:
		return http.StatusBadGateway
	case ErrCodeInvoiceNotFound:
		return http.StatusNotFound
	case ErrCodeClassifierUnavailable, ErrCodeDatabaseConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
