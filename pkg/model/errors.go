package model

import "fmt"

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
	ErrTimeout     ErrorCode = "TIMEOUT"
	ErrUnavailable ErrorCode = "UNAVAILABLE"
)

// APIError is a structured error carrying optional per-field details.
// Instance validation and the HTTP API both report failures with it.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch len(e.Details) {
	case 0:
		return msg
	case 1:
		return fmt.Sprintf("%s (%s: %s)", msg, e.Details[0].Field, e.Details[0].Message)
	default:
		return fmt.Sprintf("%s (%s: %s, and %d more)", msg, e.Details[0].Field, e.Details[0].Message, len(e.Details)-1)
	}
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

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}
