// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
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
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrLimitExceeded    = errors.New("limit exceeded")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrStorageConflict        = errors.New("storage constraint conflict")

	// Infrastructure errors
	ErrInternal           = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "ledger", "event"
	Op      string // Operation that failed, e.g., "Create", "Append"
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

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidUserID     = NewDomainError("user", "Validate", ErrInvalidID, "user id must not be blank")
)

// Event type domain errors
var (
	ErrEventTypeNotFound  = NewDomainError("event", "Find", ErrNotFound, "no active event type with this code")
	ErrEventTypeExists    = NewDomainError("event", "Create", ErrAlreadyExists, "event type code already registered")
	ErrInvalidEventType   = NewDomainError("event", "Validate", ErrInvalidInput, "invalid event type definition")
	ErrDailyLimitExceeded = NewDomainError("event", "CheckLimit", ErrLimitExceeded, "daily points limit exceeded for this event type")
)

// Ledger domain errors
var (
	ErrDuplicateEvent = NewDomainError("ledger", "Append", ErrAlreadyProcessed, "event already applied")
	ErrInvalidEventID = NewDomainError("ledger", "Validate", ErrInvalidID, "event id must not be blank")
	ErrLedgerConflict = NewDomainError("ledger", "Append", ErrStorageConflict, "concurrent append detected")
)

// Course domain errors
var (
	ErrCourseNotFound  = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrGroupNotFound   = NewDomainError("course", "FindGroup", ErrNotFound, "group not found in course")
	ErrUserNotEnrolled = NewDomainError("course", "AddPoints", ErrNotFound, "user is not enrolled in course")
	ErrAlreadyEnrolled = NewDomainError("course", "Enroll", ErrAlreadyExists, "user already enrolled in course")
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
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsDuplicate checks if the error reports an already-applied event.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}
