package internal

import (
	"errors"
	"fmt"
	"reflect"
)

type TriggerKind int

const (
	KindModified TriggerKind = iota
	KindPublished
	KindRaised
)

func (k TriggerKind) String() string {
	switch k {
	case KindModified:
		return "modified"
	case KindPublished:
		return "published"
	case KindRaised:
		return "raised"
	default:
		return "unknown"
	}
}

// Ref points at a property (or event name) of an element.
type Ref struct {
	ID       string
	Property string
}

func (r Ref) String() string {
	return r.ID + "@" + r.Property
}

// Key identifies a trigger in the registration index.
type Key struct {
	Kind TriggerKind
	Ref  Ref
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%s)", k.Kind, k.Ref)
}

type Trigger struct {
	Kind TriggerKind
	Ref  Ref

	// only set for KindRaised
	match func(error) bool
}

func Modified(id, property string) Trigger {
	return Trigger{Kind: KindModified, Ref: Ref{id, property}}
}

func Published(id string, event reflect.Type) Trigger {
	return Trigger{Kind: KindPublished, Ref: Ref{id, EventName(event)}}
}

// Raised matches callback errors with errors.Is against target.
func Raised(target error) Trigger {
	return Trigger{
		Kind:  KindRaised,
		Ref:   Ref{RaisedID, fmt.Sprintf("%T:%v", target, target)},
		match: func(err error) bool { return errors.Is(err, target) },
	}
}

// RaisedMatching matches callback errors with an arbitrary predicate, name is
// only used to tell two raised triggers apart.
func RaisedMatching(name string, match func(error) bool) Trigger {
	return Trigger{Kind: KindRaised, Ref: Ref{RaisedID, name}, match: match}
}

// RaisedID is the pseudo element id raised triggers are registered under.
const RaisedID = "_raised"

func (t Trigger) Key() Key {
	return Key{t.Kind, t.Ref}
}

func (t Trigger) Matches(err error) bool {
	return t.Kind == KindRaised && t.match != nil && t.match(err)
}

func (t Trigger) String() string {
	return t.Key().String()
}

type Select struct {
	Ref Ref
}

func (s Select) String() string {
	return "select(" + s.Ref.String() + ")"
}

type Update struct {
	Ref Ref
}

func (u Update) String() string {
	return "update(" + u.Ref.String() + ")"
}

// EventName is the property name used for published events of type t.
func EventName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		return "*" + EventName(t.Elem())
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
