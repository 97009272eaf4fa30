// Package domain contains business logic types and errors.
// Domain errors represent business-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP or chat replies by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a record or input failed schema validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	// A failed remote collection fetch is reported this way.
	ErrUnavailable = errors.New("unavailable")

	// ErrExhaustedPool indicates no quote is eligible for a random draw:
	// the deck is empty or everything left in it was drawn recently.
	ErrExhaustedPool = errors.New("no eligible quote")

	// ErrMalformedDocument indicates a collection document could not be parsed at all.
	ErrMalformedDocument = errors.New("malformed collection document")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// ExhaustedPoolError reports why a random draw found no candidates.
type ExhaustedPoolError struct {
	DeckSize   int
	RecentSize int
}

// Error implements the error interface.
func (e *ExhaustedPoolError) Error() string {
	if e.DeckSize == 0 {
		return "no eligible quote: deck is empty"
	}

	return fmt.Sprintf("no eligible quote: all %d quotes in the deck were drawn in the last %d draws",
		e.DeckSize, e.RecentSize)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ExhaustedPoolError) Unwrap() error {
	return ErrExhaustedPool
}

// NewExhaustedPoolError creates an exhausted pool error with context.
func NewExhaustedPoolError(deckSize, recentSize int) error {
	return &ExhaustedPoolError{DeckSize: deckSize, RecentSize: recentSize}
}

// MalformedDocumentError wraps the parser failure for a collection document.
type MalformedDocumentError struct {
	Cause error
}

// Error implements the error interface.
func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedDocument, e.Cause)
}

// Unwrap returns both the sentinel and the parser cause.
func (e *MalformedDocumentError) Unwrap() []error {
	return []error{ErrMalformedDocument, e.Cause}
}

// NewMalformedDocumentError creates a malformed document error.
func NewMalformedDocumentError(cause error) error {
	return &MalformedDocumentError{Cause: cause}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsExhaustedPool checks if an error reports an exhausted draw pool.
func IsExhaustedPool(err error) bool {
	return errors.Is(err, ErrExhaustedPool)
}

// IsMalformedDocument checks if an error reports an unparseable document.
func IsMalformedDocument(err error) bool {
	return errors.Is(err, ErrMalformedDocument)
}
