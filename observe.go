// Package observe lets terminal UI code declare reactions: "when this
// property changes, or this element posts this event, or a callback fails
// with this error, run this body and write its results to these properties".
//
// Reactions are validated when registered (duplicates, self-triggers and
// cycles are rejected) and dispatched breadth-first: outputs that change
// other properties trigger the next wave of reactions until everything settles.
//
//	app, _ := observe.NewApp()
//
//	a := observe.NewElement("A")
//	n := observe.NewProperty(a, "n", 0)
//	b := observe.NewElement("B")
//	text := observe.NewProperty(b, "text", "")
//
//	app.Mount(a, b)
//	app.When(
//		observe.Sync(func(ctx context.Context, c *observe.Call) ([]any, error) {
//			return []any{fmt.Sprintf("n=%d", c.Inputs[0])}, nil
//		}),
//		observe.Modified("A", "n"),
//		observe.Update("B", "text"),
//	)
//	app.Activate(ctx)
//
//	n.Set(1) // text.Get() == "n=1"
package observe

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/AnatoleLucet/observe/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// Dependency is anything that can be passed to When: triggers, selects,
// outputs and reaction options.
type Dependency interface {
	apply(r *internal.Reaction)
}

// Trigger fires a reaction.
type Trigger struct {
	t internal.Trigger
}

func (t Trigger) apply(r *internal.Reaction) { r.Triggers = append(r.Triggers, t.t) }

func (t Trigger) String() string { return t.t.String() }

// Modified fires when the property of element id changes value.
func Modified(id, property string) Trigger {
	return Trigger{internal.Modified(id, property)}
}

// Published fires every time element id posts an event of type E.
func Published[E any](id string) Trigger {
	return Trigger{internal.Published(id, reflect.TypeFor[E]())}
}

// PublishedType is Published for an event type only known at run time.
func PublishedType(id string, event reflect.Type) Trigger {
	return Trigger{internal.Published(id, event)}
}

// Raised fires when a reaction body fails with an error matching target (errors.Is).
func Raised(target error) Trigger {
	return Trigger{internal.Raised(target)}
}

// RaisedAs fires when a reaction body fails with an error of type E (errors.As).
func RaisedAs[E error]() Trigger {
	name := "as:" + reflect.TypeFor[E]().String()
	return Trigger{internal.RaisedMatching(name, func(err error) bool {
		var target E
		return errors.As(err, &target)
	})}
}

// Selection is a read-only value handed to a reaction without triggering it.
type Selection struct {
	s internal.Select
}

func (s Selection) apply(r *internal.Reaction) { r.Selects = append(r.Selects, s.s) }

func Select(id, property string) Selection {
	return Selection{internal.Select{Ref: internal.Ref{ID: id, Property: property}}}
}

// Output is a property a reaction writes its results to.
type Output struct {
	u internal.Update
}

func (o Output) apply(r *internal.Reaction) { r.Outputs = append(r.Outputs, o.u) }

func Update(id, property string) Output {
	return Output{internal.Update{Ref: internal.Ref{ID: id, Property: property}}}
}

// ReactionOption tweaks how a reaction registers.
type ReactionOption func(r *internal.Reaction)

func (o ReactionOption) apply(r *internal.Reaction) { o(r) }

// Named overrides the reaction key, which defaults to the body's function name.
func Named(name string) ReactionOption {
	return func(r *internal.Reaction) { r.Name = name }
}

// AllowMultiple lets the same body be registered more than once.
// Every registration sharing the key must allow it.
func AllowMultiple() ReactionOption {
	return func(r *internal.Reaction) { r.AllowMultiple = true }
}

// SelfTriggerSafe allows a reaction to write a property it is modified-triggered by.
// The body must converge, since the write triggers the reaction again unless the value is unchanged.
func SelfTriggerSafe() ReactionOption {
	return func(r *internal.Reaction) { r.SelfTriggerSafe = true }
}

// NoUpdate in an output slot leaves that output untouched.
var NoUpdate = internal.NoUpdate

func newReaction(body Body, deps []Dependency) *internal.Reaction {
	r := &internal.Reaction{Name: body.name, Body: body.run}
	for _, dep := range deps {
		if dep != nil {
			dep.apply(r)
		}
	}
	if r.Name == "" {
		r.Name = fmt.Sprintf("reaction%v", r.Triggers)
	}
	return r
}
