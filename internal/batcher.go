package internal

type Batcher struct {
	// goroutine running the outermost batch, 0 when not batching
	gid int64

	// each nested batch increases the depth by 1
	// if depth > 0, firings are held until the outermost batch is complete
	depth int

	held []Firing
}

func NewBatcher() *Batcher {
	return &Batcher{}
}

// Holds reports whether firings from goroutine gid should wait for the batch to end.
func (b *Batcher) Holds(gid int64) bool {
	return b.depth > 0 && b.gid == gid
}

func (b *Batcher) Hold(f Firing) {
	b.held = append(b.held, f)
}

// Enter reports false if another goroutine is batching.
func (b *Batcher) Enter(gid int64) bool {
	if b.depth > 0 && b.gid != gid {
		return false
	}
	b.gid = gid
	b.depth++
	return true
}

// Leave returns the held firings once the outermost batch exits.
func (b *Batcher) Leave() []Firing {
	b.depth--
	if b.depth > 0 {
		return nil
	}

	held := b.held
	b.held = nil
	b.gid = 0

	return held
}
