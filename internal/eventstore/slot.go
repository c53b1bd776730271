package eventstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSlotExists is returned when a slot name is defined twice with different keys.
var ErrSlotExists = errors.New("slot already defined")

// Target is implemented by anything that exposes named slots.
// Components usually get it by embedding Slots.
type Target interface {
	// Slot returns the slot with the given name, matched case-insensitively.
	Slot(name string) (*Slot, bool)
}

// Handle identifies one callback attached to a slot.
// Handles compare by identity; attaching the same function twice
// yields two distinct handles.
type Handle struct {
	slot string
	fn   any
}

// Slot returns the name of the slot the handle was attached to.
func (h *Handle) Slot() string { return h.slot }

// Func returns the attached callback.
func (h *Handle) Func() any { return h.fn }

// Slot is a named, ordered list of callbacks.
type Slot struct {
	name string
	sel  Selector

	mu      sync.RWMutex
	handles []*Handle
}

// Name returns the slot name as it was defined.
func (s *Slot) Name() string { return s.name }

// Attach appends fn to the slot and returns its handle.
// fn must match the signature of the key the slot was defined with.
func (s *Slot) Attach(fn any) (*Handle, error) {
	if err := s.sel.check(fn); err != nil {
		return nil, err
	}

	h := &Handle{slot: s.name, fn: fn}

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	return h, nil
}

// Detach removes the first occurrence of h from the slot.
// It reports whether the handle was attached.
func (s *Slot) Detach(h *Handle) bool {
	if h == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.handles {
		if existing != h {
			continue
		}
		s.handles = append(s.handles[:i:i], s.handles[i+1:]...)
		if len(s.handles) == 0 {
			s.handles = nil
		}
		return true
	}
	return false
}

// Handles returns a snapshot of the attached handles in attach order.
func (s *Slot) Handles() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.handles) == 0 {
		return nil
	}
	out := make([]*Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// Len returns the number of attached handles.
func (s *Slot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Empty reports whether no callback is attached.
func (s *Slot) Empty() bool {
	return s.Len() == 0
}

// Slots is a set of slots owned by one component.
// The zero value is ready to use.
type Slots struct {
	mu     sync.RWMutex
	byName map[string]*Slot
	order  []*Slot
}

// Define creates the slot selected by sel.
// Defining the same key again returns the existing slot.
func (s *Slots) Define(sel Selector) (*Slot, error) {
	if err := validateName(sel.Name()); err != nil {
		return nil, err
	}

	folded := strings.ToLower(sel.Name())

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byName[folded]; ok {
		if existing.sel == sel {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSlotExists, sel.Name())
	}

	if s.byName == nil {
		s.byName = make(map[string]*Slot)
	}

	slot := &Slot{name: sel.Name(), sel: sel}
	s.byName[folded] = slot
	s.order = append(s.order, slot)
	return slot, nil
}

// MustDefine is like Define but panics on error.
// It is intended for component constructors.
func (s *Slots) MustDefine(sel Selector) *Slot {
	slot, err := s.Define(sel)
	if err != nil {
		panic(err)
	}
	return slot
}

// Slot returns the slot with the given name, matched case-insensitively.
func (s *Slots) Slot(name string) (*Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.byName[strings.ToLower(name)]
	return slot, ok
}

// SlotNames returns the defined slot names in definition order.
func (s *Slots) SlotNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	for i, slot := range s.order {
		names[i] = slot.name
	}
	return names
}
