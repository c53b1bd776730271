package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/eventstore/async"
)

// Store records which handler was attached to which slot on which target, so
// that the handlers can later be detached. It holds targets and handles
// weakly and never keeps a component alive.
//
// Entries are keyed by slot name alone. Registering a name that is already
// present replaces the entry; the replaced handle stays attached to its slot.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry

	log   zerolog.Logger
	catch func(error)
	pool  *async.Pool

	// Stats
	added       atomic.Uint64
	overwritten atomic.Uint64
	flushed     atomic.Uint64
	pruned      atomic.Uint64
	dispatched  atomic.Uint64
	caught      atomic.Uint64
}

// entry is one teardown record.
type entry struct {
	target func() Target
	handle weak.Pointer[Handle]
	kind   string
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add attaches each subscription's handler to the named slot on target and
// records it in s. Subscriptions are processed in order; on failure the ones
// already processed stay registered.
func Add[T any, PT interface {
	*T
	Target
}](s *Store, target PT, subs ...Subscription) error {
	if s == nil {
		return ErrNilStore
	}
	if target == nil {
		return ErrNilTarget
	}

	wp := weak.Make((*T)(target))
	resolve := func() Target {
		if p := wp.Value(); p != nil {
			return PT(p)
		}
		return nil
	}
	kind := fmt.Sprintf("%T", target)

	for _, sub := range subs {
		slot, ok := target.Slot(sub.Name)
		if !ok {
			return &SlotError{Name: sub.Name, Target: kind, Err: ErrSlotNotFound}
		}

		h, err := slot.Attach(sub.Handler)
		if err != nil {
			return &SlotError{Name: sub.Name, Target: kind, Err: err}
		}

		s.put(sub.Name, entry{target: resolve, handle: weak.Make(h), kind: kind})
	}
	return nil
}

func (s *Store) put(name string, e entry) {
	s.mu.Lock()
	old, replaced := s.entries[name]
	s.entries[name] = e
	s.mu.Unlock()

	s.added.Add(1)
	if replaced {
		s.overwritten.Add(1)
		s.log.Warn().
			Str("slot", name).
			Str("previous", old.kind).
			Str("target", e.kind).
			Msg("subscription overwritten")
	}
}

// Flush detaches and forgets every entry registered for target.
// Entries whose target has been collected are left in place; see Prune.
// A nil target flushes everything. It returns the number of entries removed.
func (s *Store) Flush(target Target) int {
	if target == nil {
		return s.FlushAll()
	}

	var removed []detach

	s.mu.Lock()
	for name, e := range s.entries {
		live := e.target()
		if live == nil || live != target {
			continue
		}
		removed = append(removed, detach{name: name, target: live, handle: e.handle.Value()})
		delete(s.entries, name)
	}
	s.mu.Unlock()

	for _, d := range removed {
		d.run()
	}

	s.flushed.Add(uint64(len(removed)))
	s.log.Debug().Int("count", len(removed)).Str("target", fmt.Sprintf("%T", target)).Msg("flushed")
	return len(removed)
}

// FlushAll detaches every entry whose target is still alive and then clears
// the store. It returns the number of entries cleared.
func (s *Store) FlushAll() int {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]entry)
	s.mu.Unlock()

	for name, e := range entries {
		live := e.target()
		if live == nil {
			continue
		}
		detach{name: name, target: live, handle: e.handle.Value()}.run()
	}

	s.flushed.Add(uint64(len(entries)))
	s.log.Debug().Int("count", len(entries)).Msg("flushed all")
	return len(entries)
}

// detach is a pending removal, run outside the store lock.
type detach struct {
	name   string
	target Target
	handle *Handle
}

func (d detach) run() {
	if d.handle == nil {
		return
	}
	// The slot may be gone; that is not an error.
	if slot, ok := d.target.Slot(d.name); ok {
		slot.Detach(d.handle)
	}
}

// Prune removes entries whose target has been collected and returns how many
// were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for name, e := range s.entries {
		if e.target() == nil {
			delete(s.entries, name)
			n++
		}
	}
	s.pruned.Add(uint64(n))
	return n
}

// Target returns the live target registered under name.
func (s *Store) Target(name string) (Target, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return nil, false
	}
	t := e.target()
	return t, t != nil
}

// Len returns the number of entries, including stale ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names returns the registered slot names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)
	return names
}

// Caught records a failure swallowed by a dispatch through s.
func (s *Store) Caught(err error) {
	if err == nil {
		return
	}
	s.caught.Add(1)
	s.log.Debug().Err(err).Msg("dispatch failure swallowed")

	if s.catch == nil {
		return
	}
	defer func() { _ = recover() }()
	s.catch(err)
}

func (s *Store) invoked(string) {
	s.dispatched.Add(1)
}

// Go runs an async handler on the store's pool, or on a new goroutine when
// no pool is configured.
func (s *Store) Go(ctx context.Context, name string, task func(context.Context) error) error {
	if s.pool != nil {
		return s.pool.Submit(ctx, name, task)
	}
	go func() {
		if err := task(ctx); err != nil {
			s.Caught(&DispatchError{Name: name, Err: err})
		}
	}()
	return nil
}

// Stats contains store statistics.
type Stats struct {
	Entries     int
	Added       uint64
	Overwritten uint64
	Flushed     uint64
	Pruned      uint64
	Dispatched  uint64
	Caught      uint64
}

// Stats returns a snapshot of the store statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Entries:     s.Len(),
		Added:       s.added.Load(),
		Overwritten: s.overwritten.Load(),
		Flushed:     s.flushed.Load(),
		Pruned:      s.pruned.Load(),
		Dispatched:  s.dispatched.Load(),
		Caught:      s.caught.Load(),
	}
}
