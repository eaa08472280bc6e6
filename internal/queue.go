package internal

import (
	"time"
)

// Firing is one occurrence of a trigger condition.
type Firing struct {
	Kind TriggerKind
	Ref  Ref

	// modified
	Old any
	New any

	// published
	Event any

	// raised
	Err error
	// name of the reaction that failed, for raised firings
	Source string

	At time.Time
}

func (f Firing) Key() Key {
	return Key{f.Kind, f.Ref}
}

// FiringQueue accumulates firings for the next wave.
type FiringQueue struct {
	firings []Firing
}

func NewFiringQueue() *FiringQueue {
	return &FiringQueue{
		firings: make([]Firing, 0),
	}
}

func (q *FiringQueue) Enqueue(f ...Firing) {
	q.firings = append(q.firings, f...)
}

// Drain empties the queue and returns what it held.
func (q *FiringQueue) Drain() []Firing {
	if len(q.firings) == 0 {
		return nil
	}

	firings := q.firings
	q.firings = make([]Firing, 0, len(firings))

	return firings
}

func (q *FiringQueue) Len() int {
	return len(q.firings)
}

// SettledQueue holds waiters released when the runtime goes idle.
type SettledQueue struct {
	waiters []chan struct{}
}

func NewSettledQueue() *SettledQueue {
	return &SettledQueue{
		waiters: make([]chan struct{}, 0),
	}
}

func (q *SettledQueue) Enqueue() <-chan struct{} {
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *SettledQueue) Release() {
	for _, ch := range q.waiters {
		close(ch)
	}

	q.waiters = q.waiters[:0]
}
