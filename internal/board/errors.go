package board

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidRange = "INVALID_RANGE"
	CodeRemote       = "REMOTE_ERROR"
)

// Sentinels for errors.Is; matching is by Code.
var (
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "task not found"}
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidRange = &Error{Code: CodeInvalidRange, Message: "index out of range"}
	ErrRemote       = &Error{Code: CodeRemote, Message: "task store request failed"}
)

// Error is the typed failure returned by the executor. Recoverable is set when the local
// optimistic change was rolled back and the caller may retry.
type Error struct {
	Code        string
	Message     string
	Details     map[string]any
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newNotFound(id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("task %s not found", id),
		Details: map[string]any{"id": id},
	}
}

func newValidationError(err error) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "validation failed",
		Err:     err,
	}
}

func newInvalidRange(category fmt.Stringer, from, to, size int) *Error {
	return &Error{
		Code:    CodeInvalidRange,
		Message: fmt.Sprintf("reorder %d -> %d outside %s column of %d", from, to, category, size),
		Details: map[string]any{
			"category": category.String(),
			"from":     from,
			"to":       to,
			"size":     size,
		},
	}
}

func newRemoteError(op, id string, err error) *Error {
	return &Error{
		Code:        CodeRemote,
		Message:     fmt.Sprintf("%s %s", op, id),
		Details:     map[string]any{"op": op, "id": id},
		Recoverable: true,
		Err:         err,
	}
}

// IsRecoverable reports whether err is a rolled back remote failure.
func IsRecoverable(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Recoverable
}
