package validators

import (
	"fmt"
	"strings"

	"mnemo/domain/core/entities"
	"mnemo/pkg/errors"
)

// EventValidator validates event-related domain rules before any mutation
type EventValidator struct {
	contentMaxLength int
	maxMetadataKeys  int
	maxKeyLength     int
	maxValueLength   int
}

// NewEventValidator creates a new event validator with default rules
func NewEventValidator() *EventValidator {
	return &EventValidator{
		contentMaxLength: 50000,
		maxMetadataKeys:  50,
		maxKeyLength:     100,
		maxValueLength:   1000,
	}
}

// ValidateRecord validates the raw inputs of a record() call
func (v *EventValidator) ValidateRecord(content string, actor string, eventType string, metadata map[string]interface{}) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.validateContent(content); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("content", err.Error())
		}
	}

	if _, err := entities.ParseActor(actor); err != nil {
		validationErrors.AddError(errors.ErrInvalidActor.WithDetail("actor", actor))
	}

	if _, err := entities.ParseEventType(eventType); err != nil {
		validationErrors.AddError(errors.ErrInvalidEventType.WithDetail("event_type", eventType))
	}

	if err := v.ValidateMetadata(metadata); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("metadata", err.Error())
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// validateContent validates the event content
func (v *EventValidator) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.ErrEventContentRequired
	}

	if len(content) > v.contentMaxLength {
		return errors.ErrEventContentTooLong.
			WithDetail("actual_length", len(content)).
			WithDetail("max_length", v.contentMaxLength)
	}

	return nil
}

// ValidateMetadata validates event metadata
func (v *EventValidator) ValidateMetadata(metadata map[string]interface{}) error {
	if len(metadata) > v.maxMetadataKeys {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"TOO_MANY_METADATA_KEYS",
			fmt.Sprintf("Cannot have more than %d metadata keys", v.maxMetadataKeys),
		).WithDetail("field", "metadata").WithDetail("count", len(metadata))
	}

	for key, value := range metadata {
		if len(key) > v.maxKeyLength {
			return errors.NewDomainError(
				errors.DomainValidationError,
				"METADATA_KEY_TOO_LONG",
				fmt.Sprintf("Metadata key '%s' exceeds maximum length of %d", key, v.maxKeyLength),
			).WithDetail("field", "metadata").WithDetail("key", key)
		}

		switch val := value.(type) {
		case string:
			if len(val) > v.maxValueLength {
				return errors.NewDomainError(
					errors.DomainValidationError,
					"METADATA_VALUE_TOO_LONG",
					fmt.Sprintf("Metadata value for '%s' exceeds maximum length of %d", key, v.maxValueLength),
				).WithDetail("field", "metadata").WithDetail("key", key)
			}
		case []interface{}:
			if len(val) > 100 {
				return errors.NewDomainError(
					errors.DomainValidationError,
					"METADATA_ARRAY_TOO_LARGE",
					fmt.Sprintf("Metadata array for '%s' exceeds maximum size of 100", key),
				).WithDetail("field", "metadata").WithDetail("key", key)
			}
		case map[string]interface{}:
			if len(val) > 50 {
				return errors.NewDomainError(
					errors.DomainValidationError,
					"METADATA_OBJECT_TOO_LARGE",
					fmt.Sprintf("Metadata object for '%s' exceeds maximum size of 50 properties", key),
				).WithDetail("field", "metadata").WithDetail("key", key)
			}
		}
	}

	return nil
}

// EdgeValidator validates edge-related domain rules
type EdgeValidator struct{}

// NewEdgeValidator creates a new edge validator
func NewEdgeValidator() *EdgeValidator {
	return &EdgeValidator{}
}

// ValidateEdge validates an edge creation
func (v *EdgeValidator) ValidateEdge(sourceID, targetID string) error {
	if sourceID == targetID {
		return errors.ErrSelfReferentialEdge.
			WithDetail("event_id", sourceID)
	}

	return nil
}

// ValidateEdgeWeight validates the edge weight
func (v *EdgeValidator) ValidateEdgeWeight(weight float64) error {
	if weight < 0 || weight > 1 {
		return errors.ErrInvalidEdgeWeight.WithDetail("weight", weight)
	}

	return nil
}
