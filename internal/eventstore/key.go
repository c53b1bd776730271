package eventstore

import (
	"context"
	"fmt"
	"unicode"
)

// Selector names a slot and fixes the signature of the callbacks it accepts.
// It is implemented by the key types in this package.
type Selector interface {
	// Name returns the slot name.
	Name() string

	// check returns ErrNilHandler or ErrHandlerMismatch when fn cannot be
	// attached to a slot selected by this key.
	check(fn any) error
}

// Key selects a slot whose callbacks take no arguments.
type Key struct{ name string }

// NewKey creates a key for a func() slot.
func NewKey(name string) Key { return Key{name: name} }

// Name returns the slot name.
func (k Key) Name() string { return k.name }

func (k Key) check(fn any) error {
	f, ok := fn.(func())
	return checkFunc(fn, ok, f == nil)
}

// Key1 selects a slot whose callbacks take one argument.
type Key1[P1 any] struct{ name string }

// NewKey1 creates a key for a func(P1) slot.
func NewKey1[P1 any](name string) Key1[P1] { return Key1[P1]{name: name} }

// Name returns the slot name.
func (k Key1[P1]) Name() string { return k.name }

func (k Key1[P1]) check(fn any) error {
	f, ok := fn.(func(P1))
	return checkFunc(fn, ok, f == nil)
}

// Key2 selects a slot whose callbacks take two arguments.
type Key2[P1, P2 any] struct{ name string }

// NewKey2 creates a key for a func(P1, P2) slot.
func NewKey2[P1, P2 any](name string) Key2[P1, P2] { return Key2[P1, P2]{name: name} }

// Name returns the slot name.
func (k Key2[P1, P2]) Name() string { return k.name }

func (k Key2[P1, P2]) check(fn any) error {
	f, ok := fn.(func(P1, P2))
	return checkFunc(fn, ok, f == nil)
}

// Key3 selects a slot whose callbacks take three arguments.
type Key3[P1, P2, P3 any] struct{ name string }

// NewKey3 creates a key for a func(P1, P2, P3) slot.
func NewKey3[P1, P2, P3 any](name string) Key3[P1, P2, P3] {
	return Key3[P1, P2, P3]{name: name}
}

// Name returns the slot name.
func (k Key3[P1, P2, P3]) Name() string { return k.name }

func (k Key3[P1, P2, P3]) check(fn any) error {
	f, ok := fn.(func(P1, P2, P3))
	return checkFunc(fn, ok, f == nil)
}

// AsyncKey selects a slot whose callbacks run asynchronously and may fail.
type AsyncKey struct{ name string }

// NewAsyncKey creates a key for a func(context.Context) error slot.
func NewAsyncKey(name string) AsyncKey { return AsyncKey{name: name} }

// Name returns the slot name.
func (k AsyncKey) Name() string { return k.name }

func (k AsyncKey) check(fn any) error {
	f, ok := fn.(func(context.Context) error)
	return checkFunc(fn, ok, f == nil)
}

// checkFunc maps the result of a handler type assertion to an error.
func checkFunc(fn any, ok, isNil bool) error {
	switch {
	case fn == nil:
		return ErrNilHandler
	case !ok:
		return fmt.Errorf("%w: got %T", ErrHandlerMismatch, fn)
	case isNil:
		return ErrNilHandler
	}
	return nil
}

// validateName checks that name is usable as a slot name: a non-empty
// identifier made of letters, digits and underscores, not starting with a digit.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty slot name", ErrInvalidSelector)
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return fmt.Errorf("%w: %q is not an identifier", ErrInvalidSelector, name)
		}
	}
	return nil
}
