package domain

import (
	"errors"
	"fmt"
)

// MaxCommentLength is counted in characters, not bytes.
const MaxCommentLength = 250

// ErrValidation is the root of every user-correctable input error.
// Use errors.Is(err, ErrValidation) to classify.
var ErrValidation = errors.New("validation failed")

// validationError messages are safe to show to API callers.
type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrMissingLocation        error = validationError("latitude and longitude are required")
	ErrMissingCoordinates     error = validationError("Missing lat/lng parameters")
	ErrCommentTooLong         error = validationError(fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	ErrMissingObjectReference error = validationError("an objectId or an objectType and title are required")
	ErrUnknownObjectType      error = validationError("objectType must be MOVIE or TOPIC")
)

// ErrNotFound is returned when an object id does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by stores when an insert clashes with an
// existing id or (type, externalId) pair.
var ErrDuplicateKey = errors.New("duplicate key")

// FieldError is a validation failure bound to a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Is(target error) bool { return target == ErrValidation }

// StoreError wraps a persistence failure. It is never user-correctable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStoreError tags err with the failing operation. nil, ErrNotFound,
// ErrDuplicateKey and already wrapped errors pass through untouched.
func WrapStoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err should be surfaced to the caller as a 4xx.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
