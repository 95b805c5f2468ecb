package types

import (
	"errors"
	"fmt"
	"strings"
)

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// Operation errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrPropertyNotFound   = errors.New("property not found")
	ErrVersionConflict    = errors.New("version conflict")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrInvalidID          = errors.New("invalid entity ID")
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// FieldError describes one shape or required-ness violation on a single
// property key.
type FieldError struct {
	Key      string `json:"key"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
}

// ValidationError aggregates every field-level problem found in one pass.
// Callers always receive the complete list, never just the first failure.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Key != "" {
			msgs[i] = f.Key + ": " + f.Message
		} else {
			msgs[i] = f.Message
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error and returns the receiver for chaining.
func (e *ValidationError) Add(f FieldError) *ValidationError {
	e.Fields = append(e.Fields, f)
	return e
}

// Merge appends all field errors from other. A nil other is a no-op.
func (e *ValidationError) Merge(other *ValidationError) {
	if other != nil {
		e.Fields = append(e.Fields, other.Fields...)
	}
}

// Empty reports whether no field errors were collected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns the error when it carries field errors and nil otherwise.
// Returning a typed nil through an error interface is a foot-gun; callers
// finish a validation pass with OrNil.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

// Invalidf builds a single-field ValidationError.
func Invalidf(key, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}}}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// BackendError wraps a storage failure with the operation that hit it.
// It matches ErrBackendUnavailable under errors.Is so callers can treat any
// storage fault as transient without inspecting driver internals.
type BackendError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrBackendUnavailable, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *BackendError) Unwrap() error { return e.Err }

// Is matches ErrBackendUnavailable.
func (e *BackendError) Is(target error) bool { return target == ErrBackendUnavailable }

// Unavailable wraps err as a BackendError for the named operation.
func Unavailable(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
