package model

import (
	"errors"
	"fmt"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrEngineRejected ErrorCode = "ENGINE_REJECTED"
	ErrTransport      ErrorCode = "TRANSPORT_ERROR"
	ErrExtraction     ErrorCode = "EXTRACTION_FAILED"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the envelope endpoints.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewInternalError creates an INTERNAL_ERROR APIError.
func NewInternalError(msg string) *APIError {
	return &APIError{Code: ErrInternal, Message: msg}
}

// ErrInvalidInput is returned when a question is blank after trimming.
var ErrInvalidInput = errors.New("invalid input: question is empty")

// ExtractionFailedError is returned when an execution reached SUCCESS but
// its logs could not be fetched.
type ExtractionFailedError struct {
	ExecutionID string
	Err         error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for execution %s: %v", e.ExecutionID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionFailedError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}
