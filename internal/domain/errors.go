package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for boundary and engine failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownDrugClass  = errors.New("unknown drug class")
	ErrInvalidProfile    = errors.New("invalid patient profile")
	ErrInvalidActionKind = errors.New("invalid action kind")
	ErrInvalidLocale     = errors.New("unsupported locale")
)

// APIError represents a standardized error response on the HTTP and MCP surfaces
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnknownDrugClass = "UNKNOWN_DRUG_CLASS"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeTimeout          = "REQUEST_TIMEOUT"
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
)

// ValidationError names the input field that failed boundary validation
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap exposes the underlying sentinel, if any.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidProfile
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode maps an error to the API error code a caller should see.
func ErrorCode(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrUnknownDrugClass):
		return ErrCodeUnknownDrugClass
	case errors.Is(err, ErrInvalidProfile), errors.Is(err, ErrInvalidLocale), errors.Is(err, ErrInvalidActionKind):
		return ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternalServer
	}
}
