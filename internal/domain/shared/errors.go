// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Model errors
	ErrModelUnavailable = errors.New("model unavailable")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "mission", "profiling"
	Op      string // Operation that failed, e.g., "Find", "Predict"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound         = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidStudentID        = NewDomainError("student", "Validate", ErrInvalidID, "invalid student ID")
	ErrMissionAlreadyCompleted = NewDomainError("student", "RecordCompletion", ErrAlreadyExists, "mission already completed")
)

// Mission catalog errors
var (
	ErrMissionNotFound = NewDomainError("mission", "Find", ErrNotFound, "mission not found")
	ErrEventNotFound   = NewDomainError("mission", "FindEvent", ErrNotFound, "event not found")
	ErrInvalidOption   = NewDomainError("mission", "Validate", ErrInvalidInput, "unknown option key")
	ErrCatalogInvalid  = NewDomainError("mission", "Load", ErrInvalidFormat, "invalid catalog file")
)

// Recommendation errors
var (
	ErrInvalidGoal  = NewDomainError("recommendation", "Validate", ErrInvalidInput, "unknown goal")
	ErrUnknownTrack = NewDomainError("recommendation", "Validate", ErrInvalidInput, "unknown track")
)

// Profiling errors
var (
	ErrTiltModelUnavailable = NewDomainError("profiling", "PredictTilt", ErrModelUnavailable, "tilt classifier artifacts are missing or corrupt")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsModelUnavailable checks if the error comes from missing classifier artifacts.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}
