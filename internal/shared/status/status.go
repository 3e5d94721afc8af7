// Package status defines the tagged result taxonomy shared by the sandbox core
// and the HTTP layer. Every failure surfaced by an operation is a *Error with a
// Code, so no caller can confuse a sandbox denial with a missing file.
package status

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies an operation failure.
type Code string

const (
	// CodeInvalidPath marks malformed input: null bytes, control characters,
	// out-of-range edit lines.
	CodeInvalidPath Code = "invalid_path"

	// CodeForbidden marks sandbox denials: outside the allow-list, read-only
	// violations, excluded patterns.
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks paths that resolved inside the sandbox but do not exist.
	CodeNotFound Code = "not_found"

	// CodeTooLarge marks content exceeding the configured size limit.
	CodeTooLarge Code = "too_large"

	// CodeConflict marks overlapping edits and existing move targets.
	CodeConflict Code = "conflict"

	// CodeCancelled marks operations aborted by a caller deadline.
	CodeCancelled Code = "cancelled"

	// CodeInternal marks unexpected OS failures: permission bits, disk full.
	CodeInternal Code = "internal"
)

// Error is a classified operation failure.
type Error struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidPath creates an invalid-path error.
func InvalidPath(format string, args ...interface{}) *Error {
	return New(CodeInvalidPath, format, args...)
}

// Forbidden creates a sandbox-denial error.
func Forbidden(format string, args ...interface{}) *Error {
	return New(CodeForbidden, format, args...)
}

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}

// TooLarge creates a size-limit error.
func TooLarge(format string, args ...interface{}) *Error {
	return New(CodeTooLarge, format, args...)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return New(CodeConflict, format, args...)
}

// Cancelled creates a cancellation error.
func Cancelled(format string, args ...interface{}) *Error {
	return New(CodeCancelled, format, args...)
}

// Internal wraps an unexpected OS failure.
func Internal(cause error, format string, args ...interface{}) *Error {
	return Wrap(CodeInternal, cause, format, args...)
}

// Of returns the Code carried by err, or CodeInternal for unclassified errors.
// Context cancellation and deadline errors map to CodeCancelled wherever they
// surface, so long walks aborted mid-flight report consistently.
func Of(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.ErrCode
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return Of(err) == code
}
