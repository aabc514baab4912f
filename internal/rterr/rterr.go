// Package rterr defines the runtime error taxonomy shared by every engine
// component. All kinds listed here are recoverable at the language's
// Try/Catch boundary; the engine never aborts the process for them.
package rterr

import "fmt"

// Kind identifies a recoverable runtime error.
type Kind string

const (
	UnknownField           Kind = "UnknownField"
	IndexOutOfRange        Kind = "IndexOutOfRange"
	UnknownSituation       Kind = "UnknownSituation"
	UnknownMethod          Kind = "UnknownMethod"
	AlreadyActive          Kind = "AlreadyActive"
	NotActive              Kind = "NotActive"
	ProceedAtBase          Kind = "ProceedAtBase"
	RecursionGuardExceeded Kind = "RecursionGuardExceeded"
	ChannelClosed          Kind = "ChannelClosed"
	UnwrapOnNone           Kind = "UnwrapOnNone"
	DivisionByZero         Kind = "DivisionByZero"
	TypeMismatch           Kind = "TypeMismatch"
)

// Category groups kinds the way error values present themselves to programs
// (Error.Lookup.IndexOutOfBounds style).
func (k Kind) Category() string {
	switch k {
	case UnknownField, UnknownMethod, UnknownSituation, IndexOutOfRange:
		return "Lookup"
	case TypeMismatch, UnwrapOnNone:
		return "Validation"
	case ChannelClosed:
		return "Concurrency"
	default:
		return "Logic"
	}
}

// Error is a recoverable runtime error carrying its taxonomy kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Kind.Category(), e.Kind, e.Message)
}

// New creates a runtime error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, or "" if err is not a
// runtime error.
func KindOf(err error) Kind {
	if re, ok := err.(*Error); ok {
		return re.Kind
	}
	return ""
}

// Is reports whether err is a runtime error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Invariant is a fatal engine bug, distinct from the user-facing taxonomy:
// a guard mismatch discovered after a committed side effect, a dependency
// edge referencing a released instance, and the like. It is never returned
// through the recoverable path; callers log it and fail loudly in tests.
type Invariant struct {
	Component string
	Detail    string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("engine invariant violated [%s]: %s", e.Component, e.Detail)
}

// Violated creates an Invariant for the given component.
func Violated(component, format string, args ...any) *Invariant {
	return &Invariant{Component: component, Detail: fmt.Sprintf(format, args...)}
}
