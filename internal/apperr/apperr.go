// Package apperr defines the error taxonomy shared by the reconciliation and
// alert generation engines.
//
//   - ValidationError: the caller sent missing or malformed input. Not retried.
//   - ConflictError: a uniqueness constraint rejected a write. Retryable.
//   - StorageError: the database failed (connectivity, transaction). Propagated.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Sentinel causes wrapped by ValidationError.
var (
	ErrMissingExternalID = errors.New("external_id is required")
	ErrRequiredField     = errors.New("required field missing")
	ErrInvalidField      = errors.New("invalid field value")
)

// ErrNotFound is wrapped by lookups that match no live row.
var ErrNotFound = errors.New("not found")

// ValidationError reports input the caller must fix.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a uniqueness constraint rejection.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: conflict: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Retryable is always true for conflicts: a competing writer won the race.
func (e *ConflictError) Retryable() bool { return true }

// StorageError reports a database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Validation builds a ValidationError for field with the given cause.
func Validation(field string, cause error, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: cause}
}

// MissingExternalID is returned when an inbound payload has no correlation key.
func MissingExternalID() error {
	return &ValidationError{Field: "external_id", Message: "is required", Err: ErrMissingExternalID}
}

// FromDB classifies an error returned by gorm. Unique violations become
// ConflictError, everything else StorageError. nil stays nil and errors that
// are already classified pass through untouched.
func FromDB(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsConflict(err) || IsStorage(err) || IsNotFound(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if IsUniqueViolation(err) {
		return &ConflictError{Op: op, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err is a duplicate key rejection. Drivers
// translate these into gorm.ErrDuplicatedKey when TranslateError is on; the
// message checks cover connections opened without it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "duplicate entry")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
