package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrNotOwner   = errors.New("not owner")
	ErrConflict   = errors.New("conflict")
)

// ValidationError は必須項目の欠落や形式不正を表す。書き込みは一切行われない。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError is returned when the addressed entity does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// OwnershipError は author 以外による編集を表す。
type OwnershipError struct {
	StoreID string
	UserID  string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("user %q does not own store %q", e.UserID, e.StoreID)
}

func (e *OwnershipError) Unwrap() error { return ErrNotOwner }

// ConflictError reports a slug that collided with an existing store at commit time.
// Attempts is zero when raised by storage and set by the catalog once retries are exhausted.
type ConflictError struct {
	Slug     string
	Attempts int
}

func (e *ConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("slug %q still conflicting after %d attempts", e.Slug, e.Attempts)
	}
	return fmt.Sprintf("slug %q already taken", e.Slug)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
