package pgrecord

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlstateUndefinedObject is raised by Postgres when a name does not resolve
// to an existing type (class 42, undefined_object).
const sqlstateUndefinedObject = "42704"

// ErrKind categorises an error without exposing driver-specific codes.
// Every failure surfaced by this package carries exactly one kind, so
// callers can decide between "fix your declaration", "expected race, wait
// for the migration" and "schema drift, stop the world" without string
// matching.
type ErrKind int

const (
	ErrKindUnknown       ErrKind = iota
	ErrKindSchema                // declaration-time misuse, fatal
	ErrKindUndefinedType         // type not created in the database yet, transient
	ErrKindDecode                // shape mismatch between registry and database, fatal
	ErrKindValidation            // bad application input, recoverable
	ErrKindNotPrepared           // Render called before Prepare, programming error
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindSchema:
		return "schema"
	case ErrKindUndefinedType:
		return "undefined_type"
	case ErrKindDecode:
		return "decode"
	case ErrKindValidation:
		return "validation"
	case ErrKindNotPrepared:
		return "not_prepared"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by this package. The optional
// Code narrows validation errors ("bad_json", "required", ...) for callers
// that dispatch on more than the kind.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func schemaErrorf(format string, args ...any) *Error {
	return newError(ErrKindSchema, format, args...)
}

func decodeErrorf(format string, args ...any) *Error {
	return newError(ErrKindDecode, format, args...)
}

func validationErrorf(code, format string, args ...any) *Error {
	e := newError(ErrKindValidation, format, args...)
	e.Code = code
	return e
}

// fieldValidationError prefixes a validation error with the field path, so
// errors produced by nested fields stay individually attributable.
func fieldValidationError(path string, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrKindValidation {
		return &Error{
			Kind:    ErrKindValidation,
			Code:    e.Code,
			Message: path + ": " + e.Message,
			Cause:   e.Cause,
		}
	}
	return &Error{Kind: ErrKindValidation, Message: path + ": invalid value", Cause: err}
}

// --- Predicates ---

// IsSchemaError reports whether err is a declaration-time misuse, such as a
// missing type name or a duplicate field.
func IsSchemaError(err error) bool { return kindOf(err) == ErrKindSchema }

// IsUndefinedType reports whether err indicates the composite type has not
// been created in the database yet. This is an expected race between
// application startup and migrations; it is retried on the next
// registration event.
func IsUndefinedType(err error) bool { return kindOf(err) == ErrKindUndefinedType }

// IsDecodeError reports whether err is a shape mismatch between the
// in-memory declaration and what the database returned. This means schema
// drift and is never retried.
func IsDecodeError(err error) bool { return kindOf(err) == ErrKindDecode }

// IsValidationError reports whether err was caused by bad application input
// on the JSON or assignment path. Always recoverable by the caller.
func IsValidationError(err error) bool { return kindOf(err) == ErrKindValidation }

// IsNotPrepared reports whether err is an ordering violation: a literal was
// rendered before Prepare was called.
func IsNotPrepared(err error) bool { return kindOf(err) == ErrKindNotPrepared }

// ValidationCode returns the machine-readable code of a validation error,
// or "" if err is not one.
func ValidationCode(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrKindValidation {
		return e.Code
	}
	return ""
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// mapPgError translates a driver error during registration. Only
// undefined_object gets the transient kind; everything else is treated as a
// hard decode/consistency failure.
func mapPgError(err error, msg string) *Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlstateUndefinedObject {
		return &Error{Kind: ErrKindUndefinedType, Message: msg, Cause: err}
	}
	return &Error{Kind: ErrKindDecode, Message: msg, Cause: err}
}
