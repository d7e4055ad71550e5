package pkg

// Sentinel errors for the command-line host. Engine errors live in package
// lang; these describe what the host was doing when one occurred.

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a chain of errors, from the most general description to
// the most specific cause.
type Error []error

// ErrReadInput is returned when reading a script or profile fails.
// It should be wrapped with the underlying I/O error.
var ErrReadInput = MakeErrorf("failed to read input")

// ErrScriptNotFound is returned when a script name cannot be resolved
// against the working directory or the search path.
var ErrScriptNotFound = MakeErrorf("script not found")

// ErrInvalidFormat is returned when an unsupported output format is
// requested. It should be wrapped with the offending format name.
var ErrInvalidFormat = MakeErrorf("invalid format")

// ErrJSONMarshal is returned when JSON marshaling fails.
var ErrJSONMarshal = MakeErrorf("JSON marshal error")

// ErrYAMLMarshal is returned when YAML marshaling fails.
var ErrYAMLMarshal = MakeErrorf("YAML marshal error")

// ErrProfile is returned when a host profile is malformed or cannot be
// applied to a global context.
var ErrProfile = MakeErrorf("invalid host profile")

// MakeError constructs an Error from the given errors, in order. Nested
// Error chains are flattened and nil errors are skipped.
func MakeError(errs ...error) Error {
	var e Error

	for _, err := range errs {
		switch err := err.(type) {
		case nil:
		case Error:
			e = append(e, err...)
		default:
			e = append(e, err)
		}
	}

	return e
}

// MakeErrorf constructs an Error from a formatted error message.
func MakeErrorf(format string, args ...any) Error {
	return MakeError(fmt.Errorf(format, args...))
}

// Error returns the messages of all errors in the chain separated by ": ".
func (e Error) Error() string {
	var sb strings.Builder

	for i, err := range e {
		if i > 0 {
			sb.WriteString(": ")
		}

		sb.WriteString(err.Error())
	}

	return sb.String()
}

// Wrap returns a new chain with errs appended to the receiver.
// The receiver is never modified.
func (e Error) Wrap(errs ...error) Error {
	return MakeError(append(e[:len(e):len(e)], errs...)...)
}

// Wrapf returns a new chain with a formatted error appended to the receiver.
func (e Error) Wrapf(format string, args ...any) Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Unwrap returns the errors contained in the receiver.
func (e Error) Unwrap() []error {
	return e
}

// Is reports whether target is an Error whose chain begins the receiver's
// chain, so that errors derived with [Error.Wrap] match their sentinel.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok || len(t) == 0 || len(t) > len(e) {
		return false
	}

	for i := range t {
		if !errors.Is(e[i], t[i]) {
			return false
		}
	}

	return true
}
