package eventstore

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Dispatchable resolves the target registered for a slot name and receives
// the failures that dispatching swallows.
type Dispatchable interface {
	// Target returns the live target registered under name.
	Target(name string) (Target, bool)

	// Caught receives every failure swallowed by a dispatch.
	Caught(err error)
}

// AsyncRunner is implemented by Dispatchables that schedule async handlers
// themselves. Without it, DispatchAsync starts one goroutine per handler.
type AsyncRunner interface {
	Go(ctx context.Context, name string, task func(context.Context) error) error
}

// invokeObserver is implemented by dispatchables that count invocations.
type invokeObserver interface {
	invoked(name string)
}

// Direct returns a Dispatchable that resolves every name to t.
// Components use it to raise their own slots. Failures are discarded.
func Direct(t Target) Dispatchable {
	return direct{target: t}
}

type direct struct {
	target Target
}

func (d direct) Target(string) (Target, bool) { return d.target, d.target != nil }

func (direct) Caught(error) {}

// Dispatch invokes the func() handlers on the slot selected by k.
func Dispatch(d Dispatchable, k Key) error {
	return dispatch(d, k.name, func(fn any) bool {
		f, ok := fn.(func())
		if ok {
			f()
		}
		return ok
	})
}

// Dispatch1 invokes the func(P1) handlers on the slot selected by k.
func Dispatch1[P1 any](d Dispatchable, k Key1[P1], p1 P1) error {
	return dispatch(d, k.name, func(fn any) bool {
		f, ok := fn.(func(P1))
		if ok {
			f(p1)
		}
		return ok
	})
}

// Dispatch2 invokes the func(P1, P2) handlers on the slot selected by k.
func Dispatch2[P1, P2 any](d Dispatchable, k Key2[P1, P2], p1 P1, p2 P2) error {
	return dispatch(d, k.name, func(fn any) bool {
		f, ok := fn.(func(P1, P2))
		if ok {
			f(p1, p2)
		}
		return ok
	})
}

// Dispatch3 invokes the func(P1, P2, P3) handlers on the slot selected by k.
func Dispatch3[P1, P2, P3 any](d Dispatchable, k Key3[P1, P2, P3], p1 P1, p2 P2, p3 P3) error {
	return dispatch(d, k.name, func(fn any) bool {
		f, ok := fn.(func(P1, P2, P3))
		if ok {
			f(p1, p2, p3)
		}
		return ok
	})
}

// DispatchAsync schedules the func(context.Context) error handlers on the
// slot selected by k. It returns once every handler has been scheduled.
func DispatchAsync(ctx context.Context, d Dispatchable, k AsyncKey) error {
	if err := validateName(k.name); err != nil {
		return err
	}
	if d == nil {
		return ErrNilDispatcher
	}

	slot, ok := resolve(d, k.name)
	if !ok {
		return nil
	}

	runner, _ := d.(AsyncRunner)
	for _, h := range slot.Handles() {
		fn, ok := h.fn.(func(context.Context) error)
		if !ok {
			d.Caught(mismatch(k.name, h.fn))
			continue
		}

		task := recoverTask(k.name, fn)
		if obs, ok := d.(invokeObserver); ok {
			obs.invoked(k.name)
		}

		if runner != nil {
			if err := runner.Go(ctx, k.name, task); err != nil {
				d.Caught(&DispatchError{Name: k.name, Err: err})
			}
			continue
		}

		go func() {
			if err := task(ctx); err != nil {
				d.Caught(&DispatchError{Name: k.name, Err: err})
			}
		}()
	}
	return nil
}

// dispatch resolves name and calls every handle through call.
// call reports false when the handle does not have the expected signature.
func dispatch(d Dispatchable, name string, call func(fn any) bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	if d == nil {
		return ErrNilDispatcher
	}

	slot, ok := resolve(d, name)
	if !ok {
		return nil
	}

	obs, _ := d.(invokeObserver)
	for _, h := range slot.Handles() {
		if obs != nil {
			obs.invoked(name)
		}
		invoke(d, name, h, call)
	}
	return nil
}

// resolve finds the slot for name on the registered target.
func resolve(d Dispatchable, name string) (*Slot, bool) {
	target, ok := d.Target(name)
	if !ok || target == nil {
		d.Caught(&DispatchError{Name: name, Err: ErrTargetNotFound})
		return nil, false
	}

	slot, ok, live := lookup(target, name)
	if !live {
		d.Caught(&DispatchError{Name: name, Err: ErrTargetNotFound})
		return nil, false
	}
	if !ok {
		d.Caught(&DispatchError{Name: name, Err: ErrSlotNotFound})
		return nil, false
	}
	return slot, true
}

// lookup calls target.Slot, treating a panic as a dead target. A typed nil
// pointer passes the nil check above and panics here.
func lookup(target Target, name string) (slot *Slot, ok, live bool) {
	defer func() {
		if recover() != nil {
			slot, ok, live = nil, false, false
		}
	}()
	slot, ok = target.Slot(name)
	return slot, ok, true
}

// invoke runs one handle, converting a panic into a PanicError.
func invoke(d Dispatchable, name string, h *Handle, call func(fn any) bool) {
	defer func() {
		if r := recover(); r != nil {
			d.Caught(&DispatchError{
				Name: name,
				Err:  &PanicError{Name: name, Value: r, Stack: string(debug.Stack())},
			})
		}
	}()

	if !call(h.fn) {
		d.Caught(mismatch(name, h.fn))
	}
}

// recoverTask wraps an async handler so a panic becomes an error.
func recoverTask(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Name: name, Value: r, Stack: string(debug.Stack())}
			}
		}()
		return fn(ctx)
	}
}

func mismatch(name string, fn any) error {
	return &DispatchError{Name: name, Err: fmt.Errorf("%w: got %T", ErrHandlerMismatch, fn)}
}
