package eventstore_test

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/dshills/deskkit/internal/eventstore"
)

var onStatus = eventstore.NewKey1[string]("OnStatusChanged")

type statusBar struct {
	eventstore.Slots
}

func newStatusBar() *statusBar {
	b := &statusBar{}
	b.MustDefine(onStatus)
	return b
}

// Example demonstrates registering, dispatching and tearing down a handler.
func Example() {
	store := eventstore.New()
	bar := newStatusBar()

	err := eventstore.Add(store, bar,
		eventstore.On1(onStatus, func(text string) {
			fmt.Println("status:", text)
		}),
	)
	if err != nil {
		fmt.Println("add failed:", err)
		return
	}

	eventstore.Dispatch1(store, onStatus, "ready")

	fmt.Println("flushed:", store.Flush(bar))

	// Nothing is registered any more, so this is a no-op.
	eventstore.Dispatch1(store, onStatus, "gone")

	runtime.KeepAlive(bar)

	// Output:
	// status: ready
	// flushed: 1
}

// ExampleAdd_unknownSlot shows that subscribing to a slot the component does
// not define fails immediately.
func ExampleAdd_unknownSlot() {
	store := eventstore.New()

	err := eventstore.Add(store, newStatusBar(),
		eventstore.On(eventstore.NewKey("OnClicked"), func() {}),
	)
	fmt.Println(errors.Is(err, eventstore.ErrSlotNotFound))

	// Output: true
}

// ExampleWithCatch shows how swallowed dispatch failures can be observed.
func ExampleWithCatch() {
	store := eventstore.New(eventstore.WithCatch(func(err error) {
		fmt.Println("caught:", errors.Is(err, eventstore.ErrHandlerPanic))
	}))
	bar := newStatusBar()

	eventstore.Add(store, bar,
		eventstore.On1(onStatus, func(string) { panic("broken handler") }),
	)

	err := eventstore.Dispatch1(store, onStatus, "ready")
	fmt.Println("returned:", err)

	runtime.KeepAlive(bar)

	// Output:
	// caught: true
	// returned: <nil>
}
