package errs

import (
	"errors"
	"strings"
)

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "email", "error": "must be a valid email address" }
type FieldError struct {
	// Field is the field name/key the error relates to (e.g. "email").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`
}

// Kind is a string-based enum describing the category of an error.
type Kind string

const (
	// KindNotFound means the requested entity, procedure or model does not exist.
	KindNotFound Kind = "not_found"

	// KindValidation means the input was rejected before or by the database
	// (bad field values, unknown filter keys, not-null or check violations).
	KindValidation Kind = "validation"

	// KindConflict means a uniqueness or foreign-key constraint was violated.
	KindConflict Kind = "conflict"

	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// Error is the main custom error type returned by the client.
//
// Fields:
//   - Kind: error category, see the Kind constants.
//   - Code: machine-friendly error code (e.g. "USER_ALREADY_EXISTS").
//   - Message: human-friendly message.
//   - Fields: list of per-field errors (validation).
type Error struct {
	Kind    Kind         `json:"kind"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`

	cause error
}

// Error makes *Error satisfy the built-in `error` interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the driver or library error this one was built from.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same Kind.
//
// A target with an empty Kind matches any *Error, so
//
//	errors.Is(err, &errs.Error{})
//
// answers "is this one of ours at all".
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// WithMessage returns a *copy* of this Error with Message replaced.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// WithCause returns a copy of this Error that unwraps to cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound is shorthand for KindOf(err) == KindNotFound.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Not Found" -> "NOT_FOUND"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
