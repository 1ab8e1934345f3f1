package errors

import (
	"fmt"
	"strings"
)

// AppError represents an application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Err:     err,
	}
}

// FieldError describes a single invalid configuration field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConfigurationError reports one or more invalid scheduling configuration
// fields. It is always recoverable by the caller correcting input and is
// never retried automatically.
type ConfigurationError struct {
	Fields []FieldError
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid scheduling configuration: " + strings.Join(msgs, "; ")
}

// InsufficientSlotsError reports that the configured window cannot produce
// the requested number of send slots
type InsufficientSlotsError struct {
	Need      int
	Available int
}

// Error implements the error interface
func (e *InsufficientSlotsError) Error() string {
	return fmt.Sprintf("insufficient slots: need %d, %d available", e.Need, e.Available)
}

// NoAvailableIdentityError reports that a campaign's identity pool is empty
// or fully paused. The campaign run aborts; other campaigns are unaffected.
type NoAvailableIdentityError struct {
	CampaignID string
}

// Error implements the error interface
func (e *NoAvailableIdentityError) Error() string {
	return fmt.Sprintf("no available sending identity for campaign %s", e.CampaignID)
}

// NoAvailableSlotError reports that every booking probe was exhausted and
// the campaign policy does not permit double-booking
type NoAvailableSlotError struct {
	IdentityID            string
	NeedsManualScheduling bool
}

// Error implements the error interface
func (e *NoAvailableSlotError) Error() string {
	return fmt.Sprintf("no available slot for identity %s", e.IdentityID)
}
