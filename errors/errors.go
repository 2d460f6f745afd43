/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity, blob or collection is not found
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates uniqueness or overwrite rules
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists.
	// Every AlreadyExistsError is also an ErrConflict.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when input validation fails before any network call
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional (ETag guarded) write fails.
	// Every ConditionFailedError is also an ErrConflict.
	ErrConditionFailed = errors.New("condition check failed")

	// ErrStoreUnavailable is returned for transport, auth, throttling or unknown remote failures
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NotFoundError represents an error when an entity or blob is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity or blob already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists || target == ErrConflict
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed || target == ErrConflict
}

// UnavailableError wraps a remote failure that could not be classified as
// anything more specific. The cause stays reachable through errors.As.
type UnavailableError struct {
	Operation string
	Err       error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: store unavailable", e.Operation)
	}
	return fmt.Sprintf("%s: store unavailable: %v", e.Operation, e.Err)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewUnavailableError creates a new UnavailableError wrapping cause
func NewUnavailableError(operation string, cause error) error {
	return &UnavailableError{Operation: operation, Err: cause}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if an error is any kind of conflict (duplicate key, existing blob, stale ETag)
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsUnavailable checks if an error is a store unavailable error
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsRetryable reports whether retrying the same call may succeed.
// Only StoreUnavailable failures qualify; validation, conflict and not found never do.
func IsRetryable(err error) bool {
	return IsUnavailable(err)
}
