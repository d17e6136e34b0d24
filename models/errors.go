// ABOUTME: Error taxonomy shared by the store, resolver, pipeline and orchestrator
// ABOUTME: Typed errors match their sentinel through errors.Is
package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError is returned when a contact write would duplicate an email.
// Existing is the contact already holding it.
type ConflictError struct {
	Existing Contact
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("contact with email %s already exists: %s (%s)", e.Existing.Email, e.Existing.FullName, e.Existing.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError reports malformed input. Nothing is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError.
func NotFound(kind string, id uuid.UUID) error {
	return &NotFoundError{Kind: kind, ID: id}
}
