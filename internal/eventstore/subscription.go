package eventstore

import "context"

// Subscription pairs a slot name with the handler to attach to it.
// Use On, On1, On2, On3 or OnAsync to build one with a compile-time checked
// handler; a literal Subscription is checked when it is added.
type Subscription struct {
	// Name is the slot name on the target.
	Name string

	// Handler is the callback attached to the slot.
	Handler any
}

// On subscribes fn to the slot selected by k.
func On(k Key, fn func()) Subscription {
	return Subscription{Name: k.Name(), Handler: fn}
}

// On1 subscribes fn to the slot selected by k.
func On1[P1 any](k Key1[P1], fn func(P1)) Subscription {
	return Subscription{Name: k.Name(), Handler: fn}
}

// On2 subscribes fn to the slot selected by k.
func On2[P1, P2 any](k Key2[P1, P2], fn func(P1, P2)) Subscription {
	return Subscription{Name: k.Name(), Handler: fn}
}

// On3 subscribes fn to the slot selected by k.
func On3[P1, P2, P3 any](k Key3[P1, P2, P3], fn func(P1, P2, P3)) Subscription {
	return Subscription{Name: k.Name(), Handler: fn}
}

// OnAsync subscribes fn to the slot selected by k.
func OnAsync(k AsyncKey, fn func(context.Context) error) Subscription {
	return Subscription{Name: k.Name(), Handler: fn}
}
