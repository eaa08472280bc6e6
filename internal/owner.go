package internal

import (
	"iter"
	"sync"
)

// Owner scopes the lifetime of reactions: disposing it runs its cleanups
// (which unregister the reactions declared within it) and disposes its children.
type Owner struct {
	mu sync.Mutex

	// cleanup functions to be called when the owner is disposed
	cleanups []func()

	// error handlers for failures nobody reacted to
	catchers []func(error)

	parent       *Owner
	prevSibling  *Owner
	nextSibling  *Owner
	childrenHead *Owner
}

func NewOwner() *Owner {
	return &Owner{
		cleanups: make([]func(), 0),
	}
}

func (parent *Owner) AddChild(child *Owner) {
	parent.mu.Lock()
	defer parent.mu.Unlock()

	child.parent = parent
	child.prevSibling = nil
	child.nextSibling = parent.childrenHead

	if parent.childrenHead != nil {
		parent.childrenHead.prevSibling = child
	}

	parent.childrenHead = child
}

func (parent *Owner) removeChild(child *Owner) {
	parent.mu.Lock()
	defer parent.mu.Unlock()

	if child.prevSibling != nil {
		child.prevSibling.nextSibling = child.nextSibling
	} else if parent.childrenHead == child {
		parent.childrenHead = child.nextSibling
	}
	if child.nextSibling != nil {
		child.nextSibling.prevSibling = child.prevSibling
	}

	child.parent = nil
	child.prevSibling = nil
	child.nextSibling = nil
}

func (n *Owner) Children() iter.Seq[*Owner] {
	return func(yield func(*Owner) bool) {
		n.mu.Lock()
		var children []*Owner
		for child := n.childrenHead; child != nil; child = child.nextSibling {
			children = append(children, child)
		}
		n.mu.Unlock()

		for _, child := range children {
			if !yield(child) {
				return
			}
		}
	}
}

// Dispose disposes the children first, then runs cleanups in registration order.
// The owner detaches from its parent and can be reused afterwards.
func (n *Owner) Dispose() {
	n.DisposeChildren()

	n.mu.Lock()
	cleanups := n.cleanups
	n.cleanups = nil
	parent := n.parent
	n.mu.Unlock()

	for _, cleanup := range cleanups {
		cleanup()
	}

	if parent != nil {
		parent.removeChild(n)
	}
}

func (n *Owner) DisposeChildren() {
	for child := range n.Children() {
		child.Dispose()
	}
}

func (n *Owner) OnCleanup(fn func()) {
	n.mu.Lock()
	n.cleanups = append(n.cleanups, fn)
	n.mu.Unlock()
}

func (n *Owner) OnError(fn func(error)) {
	n.mu.Lock()
	n.catchers = append(n.catchers, fn)
	n.mu.Unlock()
}

// Catch hands err to the nearest owner with error handlers.
// It reports false if no owner up the chain has any.
func (n *Owner) Catch(err error) bool {
	for o := n; o != nil; {
		o.mu.Lock()
		catchers := append([]func(error){}, o.catchers...)
		parent := o.parent
		o.mu.Unlock()

		if len(catchers) > 0 {
			for _, catcher := range catchers {
				catcher(err)
			}
			return true
		}

		o = parent
	}

	return false
}
