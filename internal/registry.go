package internal

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// snapshot is an immutable view of the registration table.
type snapshot struct {
	all    []*Reaction
	byKey  map[Key][]*Reaction
	raised []*Reaction
}

func (s *snapshot) with(r *Reaction) *snapshot {
	next := &snapshot{
		all:    append(slices.Clip(s.all), r),
		byKey:  make(map[Key][]*Reaction, len(s.byKey)+len(r.Triggers)),
		raised: s.raised,
	}
	for k, v := range s.byKey {
		next.byKey[k] = v
	}

	for _, t := range r.Triggers {
		if t.Kind == KindRaised {
			continue
		}
		k := t.Key()
		next.byKey[k] = append(slices.Clip(next.byKey[k]), r)
	}
	if r.hasRaised() {
		next.raised = append(slices.Clip(s.raised), r)
	}

	return next
}

func (s *snapshot) without(r *Reaction) *snapshot {
	drop := func(list []*Reaction) []*Reaction {
		return slices.DeleteFunc(slices.Clone(list), func(x *Reaction) bool { return x == r })
	}

	next := &snapshot{
		all:    drop(s.all),
		byKey:  make(map[Key][]*Reaction, len(s.byKey)),
		raised: drop(s.raised),
	}
	for k, v := range s.byKey {
		if slices.Contains(v, r) {
			v = drop(v)
		}
		if len(v) > 0 {
			next.byKey[k] = v
		}
	}

	return next
}

// Registry is the registration table: a single writer publishes snapshots,
// readers never see a half-updated index.
type Registry struct {
	mu   sync.Mutex
	seq  uint64
	snap atomic.Pointer[snapshot]
}

func NewRegistry() *Registry {
	reg := &Registry{}
	reg.snap.Store(&snapshot{byKey: make(map[Key][]*Reaction)})
	return reg
}

// Register validates r against the table and activates it.
// On error the table is left untouched.
func (reg *Registry) Register(r *Reaction) error {
	if err := Validate(r); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	snap := reg.snap.Load()

	for _, other := range snap.all {
		if other.Name == r.Name && !(other.AllowMultiple && r.AllowMultiple) {
			return fmt.Errorf("%w: %s", ErrDuplicateReaction, r.Name)
		}
	}

	if err := NewGraph(snap.all).DetectCycle(r); err != nil {
		return err
	}

	reg.seq++
	r.seq = reg.seq
	r.active.Store(true)
	reg.snap.Store(snap.with(r))

	return nil
}

// Unregister deactivates r and removes it from every index.
// An invocation already in flight completes, no new one starts.
func (reg *Registry) Unregister(r *Reaction) bool {
	if !r.active.CompareAndSwap(true, false) {
		return false
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.snap.Store(reg.snap.Load().without(r))
	return true
}

// Lookup returns the reactions registered on k, in registration order.
func (reg *Registry) Lookup(k Key) []*Reaction {
	return reg.snap.Load().byKey[k]
}

// Raised returns every reaction with at least one raised trigger, in registration order.
func (reg *Registry) Raised() []*Reaction {
	return reg.snap.Load().raised
}

func (reg *Registry) All() []*Reaction {
	return reg.snap.Load().all
}

func (reg *Registry) Len() int {
	return len(reg.snap.Load().all)
}

// Handles reports whether some active reaction reacts to err.
func (reg *Registry) Handles(err error) bool {
	for _, r := range reg.Raised() {
		if r.Active() && r.matches(Firing{Kind: KindRaised, Err: err}) >= 0 {
			return true
		}
	}
	return false
}
