package eventstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event store.
var (
	// ErrSlotNotFound is returned when a target does not define the named slot.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrInvalidSelector is returned when a key does not name a slot.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrHandlerMismatch is returned when a handler does not match the slot's signature.
	ErrHandlerMismatch = errors.New("handler does not match slot signature")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilTarget is returned when a nil target is provided.
	ErrNilTarget = errors.New("target cannot be nil")

	// ErrNilStore is returned when Add is called without a Store.
	ErrNilStore = errors.New("store cannot be nil")

	// ErrNilDispatcher is returned when Dispatch is called without a Dispatchable.
	ErrNilDispatcher = errors.New("dispatcher cannot be nil")

	// ErrTargetNotFound is reported when no live target is registered for a slot name.
	ErrTargetNotFound = errors.New("target not found")

	// ErrHandlerPanic is reported when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// SlotError wraps a failure to subscribe a handler to a target's slot.
type SlotError struct {
	// Name is the slot name that was requested.
	Name string

	// Target is the dynamic type of the target, for diagnostics.
	Target string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s on %s: %v", e.Name, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *SlotError) Unwrap() error {
	return e.Err
}

// DispatchError describes a failure swallowed during dispatch.
type DispatchError struct {
	// Name is the slot name being dispatched.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return "dispatch " + e.Name + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value recovered from a handler.
type PanicError struct {
	// Name is the slot whose handler panicked.
	Name string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic on slot %s: %v", e.Name, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
