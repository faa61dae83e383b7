package core

import (
	"errors"
	"fmt"
)

// ErrorKind sorts failures into the taxonomy the trampoline and handlers
// dispatch on.
type ErrorKind int

const (
	ErrKindInternal ErrorKind = iota
	ErrKindOutOfMemory
	ErrKindAccessViolation
	ErrKindTypeMismatch
	ErrKindUnbound
	ErrKindHalt
	ErrKindThrow // an unclaimed throw escalated to a failure
)

var errorKindNames = map[ErrorKind]string{
	ErrKindInternal:        "internal",
	ErrKindOutOfMemory:     "out-of-memory",
	ErrKindAccessViolation: "access-violation",
	ErrKindTypeMismatch:    "type-mismatch",
	ErrKindUnbound:         "unbound",
	ErrKindHalt:            "halt",
	ErrKindThrow:           "throw",
}

func (k ErrorKind) String() string { return errorKindNames[k] }

// Error is the recoverable failure value produced by Fail and propagated to
// the nearest handler by the trampoline.
type Error struct {
	Kind    ErrorKind
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

func (e *Error) withCause(cause error) *Error {
	e.wrapped = cause
	return e
}

// Sources of read-onlyness, most severe first. ensureWritable wraps them in
// an access-violation so errors.Is can pick the specific cause.
var (
	ErrAutoLocked = errors.New("series is auto-locked")
	ErrHeld       = errors.New("series is held for reading")
	ErrFrozen     = errors.New("series is frozen")
	ErrProtected  = errors.New("series is protected")
)

var ErrHalted = &Error{Kind: ErrKindHalt, Message: "evaluation halted"}

func failf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// asError adapts any error to the failure type without losing the typed
// kind when one is already present.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: ErrKindInternal, Message: err.Error()}
}

// divergence is the unrecoverable panic payload. It bypasses the failure
// machinery and unwinds straight to the trampoline top, which re-raises it
// when Config.CrashOnDivergence is set and otherwise converts it to an
// internal-kind error.
type divergence struct {
	msg string
}

func (d divergence) Error() string { return "divergent panic: " + d.msg }

func diverge(msg string) divergence { return divergence{msg: msg} }

// ThrowState carries a first-class throw (BREAK, RETURN, QUIT) bubbling
// through the evaluator until a handler claims it.
type ThrowState struct {
	Label Cell
	Arg   Cell
}

// failureState is the two-state hand-off tested at Result-typed boundaries:
// a current failure and a divergence flag.
type failureState struct {
	failure   *Error
	divergent bool
}

func (fs *failureState) set(e *Error) {
	if fs.failure != nil && debugChecks {
		panic(diverge("failure overwritten before being observed"))
	}
	fs.failure = e
}

// take observes and clears the pending failure.
func (fs *failureState) take() *Error {
	e := fs.failure
	fs.failure = nil
	return e
}
