package errors

import (
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainTimeoutError indicates operation timeout
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Details:   make(map[string]interface{}),
		Retryable: false,
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// clone copies the error and its details map. The With* builders work on
// clones so the shared package-level error values stay immutable under
// concurrent callers.
func (e *DomainError) clone() *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &DomainError{
		Type:      e.Type,
		Code:      e.Code,
		Message:   e.Message,
		Details:   details,
		Cause:     e.Cause,
		Retryable: e.Retryable,
	}
}

// WithCause returns a copy of the error carrying the given cause
func (e *DomainError) WithCause(cause error) *DomainError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetail returns a copy of the error with the detail attached
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithRetryable returns a copy of the error with the retryable flag set
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Common domain errors - these are pre-defined errors that can be reused

var (
	// Event errors
	ErrEventNotFound = NewDomainError(
		DomainNotFoundError,
		"EVENT_NOT_FOUND",
		"The requested event does not exist",
	)

	ErrEventContentRequired = NewDomainError(
		DomainValidationError,
		"EVENT_CONTENT_REQUIRED",
		"Event content is required",
	)

	ErrEventContentTooLong = NewDomainError(
		DomainValidationError,
		"EVENT_CONTENT_TOO_LONG",
		"Event content exceeds maximum length",
	).WithDetail("max_length", 50000)

	ErrInvalidActor = NewDomainError(
		DomainValidationError,
		"INVALID_ACTOR",
		"Actor must be user, agent, or system",
	)

	ErrInvalidEventType = NewDomainError(
		DomainValidationError,
		"INVALID_EVENT_TYPE",
		"Unknown event type",
	)

	// Graph errors
	ErrSelfReferentialEdge = NewDomainError(
		DomainBusinessRuleError,
		"SELF_REFERENTIAL_EDGE",
		"Cannot create an edge from an event to itself",
	)

	ErrInvalidEdgeWeight = NewDomainError(
		DomainValidationError,
		"INVALID_EDGE_WEIGHT",
		"Edge weight must be between 0 and 1",
	)

	// Reflection errors
	ErrReflectionNotFound = NewDomainError(
		DomainNotFoundError,
		"REFLECTION_NOT_FOUND",
		"No reflection cached for this date",
	)

	// Configuration errors
	ErrInvalidWeightSum = NewDomainError(
		DomainValidationError,
		"INVALID_WEIGHT_SUM",
		"Salience weights must sum to 1.0",
	)

	// Infrastructure errors
	ErrStoreUnavailable = NewDomainError(
		DomainInfrastructureError,
		"STORE_UNAVAILABLE",
		"Event store is unavailable",
	).WithRetryable(true)
)

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map keyed by field
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}

		result[field] = append(result[field], err.Message)
	}

	return result
}
