// Package domainerrors provides coded errors for domain and service layers.
//
// Services create these at trust boundaries (dErrors.New) or translate
// infrastructure sentinels into them (dErrors.Wrap); transports map codes to
// protocol status. Keeping the code on the error rather than on a bespoke
// type per layer lets every layer branch with HasCode without importing its
// neighbours.
package domainerrors

import "errors"

// Code classifies an error for callers that need to branch or map to a
// transport status.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input rejected before
	// any state change (bad parameters, self-referral, oversized batches).
	CodeValidation Code = "validation"

	// CodeInvalidInput marks input that fails structural parsing (empty or
	// non-UUID identifiers).
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks an operation that would duplicate existing state,
	// such as registering the same participant twice.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks an entity in the wrong state for the
	// requested operation (not registered, no credential, cooldown pending).
	CodeInvariantViolation Code = "invariant_violation"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller lacking permission,
	// including calls rejected because the service is paused.
	CodeForbidden Code = "forbidden"

	// CodeCollaborator marks a failure reported by an external collaborator
	// (payment rail, subscription authority). The underlying reason is
	// preserved via wrapping.
	CodeCollaborator Code = "collaborator"

	// CodeTimeout marks an operation aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected failures that should not leak detail.
	CodeInternal Code = "internal"
)

// Error carries a classification code alongside the message and optional
// cause. It supports errors.Is/As through Unwrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if errors.As(err, &coded) {
			if coded.Code == code {
				return true
			}
			err = coded.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// Is re-exports errors.Is so callers already importing this package do not
// need both.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
