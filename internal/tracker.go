package internal

// Tracker remembers which goroutine owns the dispatch loop.
// Only the runtime touches it, under the runtime lock.
type Tracker struct {
	owner int64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Acquire(gid int64) {
	t.owner = gid
}

func (t *Tracker) Release() {
	t.owner = 0
}

func (t *Tracker) Owns(gid int64) bool {
	return t.owner != 0 && t.owner == gid
}
