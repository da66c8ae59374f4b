package types

import "fmt"

// ErrorKind tags the class of failure a command produced. Every error the
// engine returns (other than a fatal Book invariant violation, which
// panics) carries one of these.
type ErrorKind int

const (
	// Malformed covers zero quantity, minimum_quantity > quantity,
	// non-finite/non-positive price, or an expiration already in the past
	// at admission time.
	Malformed ErrorKind = iota
	// NotFound covers a cancel naming an unknown order id, and a modify
	// naming an unknown or already-terminal order id.
	NotFound
	// CannotChangeSideOrKind covers a Modify attempting to alter an
	// order's immutable side or kind.
	CannotChangeSideOrKind
	// DuplicateID covers a Create using an id that is already live.
	DuplicateID
	// AlreadyTerminal covers a Cancel naming an order that has already
	// reached a terminal state (filled, cancelled, expired).
	AlreadyTerminal
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "Malformed"
	case NotFound:
		return "NotFound"
	case CannotChangeSideOrKind:
		return "CannotChangeSideOrKind"
	case DuplicateID:
		return "DuplicateId"
	case AlreadyTerminal:
		return "AlreadyTerminal"
	default:
		return "Unknown"
	}
}

// EngineError is the single error type every engine command surfaces to its
// caller. It replaces string-matched fmt.Errorf calls with a typed Kind a
// caller can switch on via errors.As.
type EngineError struct {
	Kind ErrorKind
	Msg  string
}

// NewEngineError builds an EngineError with a formatted message.
func NewEngineError(kind ErrorKind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}
