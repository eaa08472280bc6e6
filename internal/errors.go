package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateReaction = errors.New("reaction already registered")
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrSelfTrigger       = errors.New("reaction triggers itself")
	ErrNoTrigger         = errors.New("no trigger dependency")
	ErrDuplicateTrigger  = errors.New("duplicate trigger dependency")
	ErrNoBody            = errors.New("reaction has no body")
	ErrDuplicateElement  = errors.New("element id already mounted")
	ErrUnknownElement    = errors.New("unknown element")
	ErrUnknownProperty   = errors.New("unknown property")
	ErrPropertyType      = errors.New("value does not fit property type")
	ErrOutputArity       = errors.New("output count mismatch")
	ErrTaskTimeout       = errors.New("task timed out")
	ErrCascadeLimit      = errors.New("cascade limit reached")
	ErrPreventUpdate     = errors.New("prevent update")
	ErrInactive          = errors.New("app is not active")
)

type CyclicDependencyError struct {
	// reaction names, first and last are the same
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

type SelfTriggerError struct {
	Reaction string
	Ref      Ref
}

func (e *SelfTriggerError) Error() string {
	return fmt.Sprintf("reaction %s writes %s which triggers it", e.Reaction, e.Ref)
}

func (e *SelfTriggerError) Unwrap() error { return ErrSelfTrigger }

type UnknownElementError struct {
	Reaction string
	ID       string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("reaction %s: element %q is not mounted", e.Reaction, e.ID)
}

func (e *UnknownElementError) Unwrap() error { return ErrUnknownElement }

// PanicError wraps a value recovered from a callback body.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
