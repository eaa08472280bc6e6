package internal

import (
	"fmt"
	"iter"
	"reflect"
	"sync"
	"sync/atomic"
)

type Element struct {
	id string

	mu      sync.RWMutex
	props   map[string]*Property
	order   []string
	handler func(event any)

	rt atomic.Pointer[Runtime]
}

func NewElement(id string) *Element {
	return &Element{
		id:    id,
		props: make(map[string]*Property),
	}
}

func (e *Element) ID() string { return e.id }

// Define returns the property called name, creating it with initial if it does not exist yet.
// A non-nil typ restricts the values Assign accepts.
func (e *Element) Define(name string, initial any, typ reflect.Type) *Property {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.props[name]; ok {
		return p
	}

	p := &Property{owner: e, name: name, typ: typ, value: initial}
	e.props[name] = p
	e.order = append(e.order, name)

	return p
}

func (e *Element) Property(name string) (*Property, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.props[name]
	return p, ok
}

// Properties iterates properties in definition order.
func (e *Element) Properties() iter.Seq[*Property] {
	return func(yield func(*Property) bool) {
		e.mu.RLock()
		names := append([]string(nil), e.order...)
		e.mu.RUnlock()

		for _, name := range names {
			p, ok := e.Property(name)
			if ok && !yield(p) {
				return
			}
		}
	}
}

// OnEvent sets the host handler posted events are delivered to before observers see them.
func (e *Element) OnEvent(fn func(event any)) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

// Post delivers event to the host handler, then fires a published trigger.
// Published firings are never suppressed, even for identical payloads.
func (e *Element) Post(event any) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()

	if handler != nil {
		handler(event)
	}

	if rt := e.runtime(); rt != nil {
		rt.Notify(Firing{
			Kind:  KindPublished,
			Ref:   Ref{e.id, EventName(reflect.TypeOf(event))},
			Event: event,
		})
	}
}

func (e *Element) runtime() *Runtime {
	return e.rt.Load()
}

type mounted struct {
	el    *Element
	owner *Owner
}

// Tree holds the mounted elements of a runtime, by id.
type Tree struct {
	mu       sync.RWMutex
	elements map[string]mounted
}

func NewTree() *Tree {
	return &Tree{elements: make(map[string]mounted)}
}

func (t *Tree) Mount(rt *Runtime, el *Element, owner *Owner) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.elements[el.id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateElement, el.id)
	}
	if other := el.runtime(); other != nil && other != rt {
		return fmt.Errorf("%w: %q is mounted in another app", ErrDuplicateElement, el.id)
	}

	t.elements[el.id] = mounted{el, owner}
	el.rt.Store(rt)

	return nil
}

// Unmount removes the element and disposes the scope it was mounted with.
func (t *Tree) Unmount(id string) bool {
	t.mu.Lock()
	m, ok := t.elements[id]
	delete(t.elements, id)
	t.mu.Unlock()

	if !ok {
		return false
	}

	m.el.rt.Store(nil)
	if m.owner != nil {
		m.owner.Dispose()
	}

	return true
}

func (t *Tree) Get(id string) (*Element, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.elements[id]
	return m.el, ok
}

// Read returns the current value of ref.
func (t *Tree) Read(ref Ref) (any, error) {
	el, ok := t.Get(ref.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, ref.ID)
	}

	p, ok := el.Property(ref.Property)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, ref)
	}

	return p.Value(), nil
}

func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.elements)
}
