// Package eventstore provides the teardown registry that connects UI components
// through named callback slots.
//
// A component exposes its notifications as slots: named, ordered lists of
// callbacks. Other parts of the application attach handlers to those slots
// through a Store, which remembers every attachment so it can be removed again
// when the component goes away. The Store only holds weak references to
// components, so a registry entry never keeps a closed window alive.
//
// # Slots and Keys
//
// Slots are declared with typed keys. The key's type parameters fix the
// callback signature, so a handler of the wrong shape is rejected when it is
// attached rather than when it is called:
//
//	var OnShutdown = eventstore.NewKey1[bool]("OnShutdown")
//
//	type MainWindow struct {
//	    eventstore.Slots
//	}
//
//	func NewMainWindow() *MainWindow {
//	    w := &MainWindow{}
//	    w.MustDefine(OnShutdown)
//	    return w
//	}
//
// Slot names are matched case-insensitively.
//
// # Registering Handlers
//
// Handlers are registered against a component with Add:
//
//	store := eventstore.New()
//	err := eventstore.Add(store, window,
//	    eventstore.On1(OnShutdown, window.shutdown),
//	)
//
// Adding to a slot the component does not define fails with ErrSlotNotFound.
// Store entries are keyed by slot name only. Registering the same name twice,
// even for different components, replaces the earlier entry.
//
// # Dispatching
//
// Dispatch resolves the component currently registered under a key's name and
// invokes every handler on its slot:
//
//	eventstore.Dispatch1(store, OnShutdown, false)
//
// Dispatch is best effort. A missing component, a missing slot, a handler
// that panics or a handler of the wrong type never reaches the caller; each
// failure is passed to the Dispatchable's Caught method instead. The only
// error Dispatch returns is ErrInvalidSelector for a malformed key.
//
// # Teardown
//
// Flush(target) detaches every handler registered against one component and
// forgets those entries. FlushAll does the same for every live component and
// then empties the store. Entries whose components have already been collected
// are skipped by Flush and can be removed with Prune.
//
// # Thread Safety
//
// Store, Slots and Slot are safe for concurrent use. Handlers always run
// outside the store's lock, so a handler may call Add or Flush.
package eventstore
