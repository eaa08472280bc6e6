package observe

import (
	"reflect"

	"github.com/AnatoleLucet/observe/internal"
)

// Property is a typed observable value of an element.
// Set only fires reactions when the new value differs from the current one.
type Property[T any] struct {
	p *internal.Property
}

// NewProperty declares a property on el. Declaring the same name twice
// returns the existing property, whose value keeps its original type.
func NewProperty[T any](el *Element, name string, initial T) *Property[T] {
	return &Property[T]{el.el.Define(name, initial, reflect.TypeFor[T]())}
}

// Get reads the current value.
func (p *Property[T]) Get() T {
	return as[T](p.p.Value())
}

// Set writes v. When it changes the value and the element is mounted in an
// active app, the reactions modified-triggered by the property run before Set
// returns, unless a dispatch is already running, in which case they run in
// its next wave.
func (p *Property[T]) Set(v T) bool {
	return p.p.Write(v)
}

func (p *Property[T]) Name() string { return p.p.Name() }

// Modified is the trigger for this property.
func (p *Property[T]) Modified() Trigger {
	ref := p.p.Ref()
	return Modified(ref.ID, ref.Property)
}

// Select is the select dependency for this property.
func (p *Property[T]) Select() Selection {
	ref := p.p.Ref()
	return Select(ref.ID, ref.Property)
}

// Update is the output dependency for this property.
func (p *Property[T]) Update() Output {
	ref := p.p.Ref()
	return Update(ref.ID, ref.Property)
}
