// Package apperrors defines the coded error type shared across services and
// stores. Codes are stable machine-readable identifiers; callers branch on
// the code, never on message text.
package apperrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeInvalidInput covers validation failures before any statement runs.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound is reserved for lookups that must error; stores return
	// (nil, nil) for plain not-found results.
	CodeNotFound Code = "not_found"
	// CodeDuplicateKey maps unique-constraint violations.
	CodeDuplicateKey Code = "duplicate_key"
	// CodeForeignKeyViolation maps referential-integrity violations.
	CodeForeignKeyViolation Code = "foreign_key_violation"
	// CodeCheckViolation maps range and non-empty check violations.
	CodeCheckViolation Code = "check_violation"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeRateLimited   Code = "rate_limited"
	CodeInternal      Code = "internal"
)

// Error carries a Code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain. Unknown errors report
// CodeInternal; nil reports the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
