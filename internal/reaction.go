package internal

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Body is the callable part of a reaction.
type Body func(ctx context.Context, call *Call) Task

// Call is what a body receives when it is invoked.
type Call struct {
	Reaction string
	Batch    uuid.UUID

	// firings of this wave that matched the reaction's triggers, in arrival order
	Firings []Firing

	// one value per trigger: the current value for modified triggers,
	// the event or error for published and raised triggers that fired, nil otherwise
	Inputs []any

	// one value per select, read when the reaction was resolved
	Selects []any
}

// Trigger returns the first firing that caused the call.
func (c *Call) Trigger() Firing {
	if len(c.Firings) == 0 {
		return Firing{}
	}
	return c.Firings[0]
}

// Reaction is immutable once registered, apart from its active flag.
type Reaction struct {
	Name     string
	Triggers []Trigger
	Selects  []Select
	Outputs  []Update
	Body     Body

	AllowMultiple   bool
	SelfTriggerSafe bool

	seq    uint64
	active atomic.Bool
	owner  *Owner
}

func (r *Reaction) Seq() uint64 { return r.seq }

func (r *Reaction) Active() bool { return r.active.Load() }

func (r *Reaction) String() string {
	parts := make([]string, 0, len(r.Triggers)+len(r.Outputs))
	for _, t := range r.Triggers {
		parts = append(parts, t.String())
	}
	for _, o := range r.Outputs {
		parts = append(parts, o.String())
	}
	return fmt.Sprintf("%s[%s]", r.Name, strings.Join(parts, " "))
}

func (r *Reaction) writes(ref Ref) bool {
	for _, o := range r.Outputs {
		if o.Ref == ref {
			return true
		}
	}
	return false
}

func (r *Reaction) hasRaised() bool {
	for _, t := range r.Triggers {
		if t.Kind == KindRaised {
			return true
		}
	}
	return false
}

// matches reports which trigger index of r the firing satisfies, or -1.
func (r *Reaction) matches(f Firing) int {
	for i, t := range r.Triggers {
		if t.Kind != f.Kind {
			continue
		}
		if t.Kind == KindRaised {
			if t.Matches(f.Err) {
				return i
			}
			continue
		}
		if t.Ref == f.Ref {
			return i
		}
	}
	return -1
}

type noUpdate struct{}

// NoUpdate in an output slot leaves that output untouched.
var NoUpdate any = noUpdate{}

func IsNoUpdate(v any) bool {
	_, ok := v.(noUpdate)
	return ok
}
