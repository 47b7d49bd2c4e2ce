package report

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so the routing layer can map them to status
// codes without parsing messages.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAccessDenied
	KindNotFound
	KindExecution
	KindCache
)

// Error is the single error type raised by the engine and its generators.
// Execution errors carry the underlying cause for the audit trail only; the
// message surfaced to callers never contains SQL text or bound values.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindExecution {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the full cause for audit logging. Never sent to callers.
func (e *Error) Detail() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func AccessDenied(err error) *Error {
	return &Error{Kind: KindAccessDenied, Msg: "access denied", Err: err}
}

func ExecutionFailure(err error) *Error {
	return &Error{Kind: KindExecution, Msg: "report execution failed", Err: err}
}

func CacheFailure(err error) *Error {
	return &Error{Kind: KindCache, Msg: "cache unavailable", Err: err}
}

// KindOf extracts the error kind, or 0 for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
