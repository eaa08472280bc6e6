package observe

import (
	"fmt"

	"github.com/AnatoleLucet/observe/internal"
)

// Element is the observable part of a host widget.
// Host types embed *Element and declare their properties with NewProperty.
type Element struct {
	el *internal.Element
}

// NewElement creates an element. The id must be unique among the elements
// mounted in an app.
func NewElement(id string) *Element {
	return &Element{internal.NewElement(id)}
}

func (e *Element) ID() string { return e.el.ID() }

// Post delivers event to the handler set with OnEvent, then fires the
// reactions published-triggered by the event's type on this element.
func (e *Element) Post(event any) { e.el.Post(event) }

// OnEvent sets the host handler Post delivers events to first.
func (e *Element) OnEvent(fn func(event any)) { e.el.OnEvent(fn) }

// Value returns the current value of the named property.
func (e *Element) Value(property string) (any, bool) {
	p, ok := e.el.Property(property)
	if !ok {
		return nil, false
	}
	return p.Value(), true
}

// Properties lists the property names in definition order.
func (e *Element) Properties() []string {
	var names []string
	for p := range e.el.Properties() {
		names = append(names, p.Name())
	}
	return names
}

// Set writes the named property, reporting whether it changed.
func (e *Element) Set(property string, value any) (bool, error) {
	p, ok := e.el.Property(property)
	if !ok {
		return false, fmt.Errorf("%w: %s@%s", ErrUnknownProperty, e.ID(), property)
	}
	return p.Assign(value)
}

func (e *Element) element() *Element { return e }

// Mountable is satisfied by *Element and by any type embedding it.
type Mountable interface {
	element() *Element
}

// Composer is implemented by elements that declare their own reactions.
// Compose runs when the element is mounted; the reactions it registers are
// removed when the element is unmounted.
type Composer interface {
	Mountable
	Compose(b *Builder) error
}
