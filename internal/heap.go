package internal

import "iter"

// heapEntry is a reaction scheduled for the current wave, with every firing that selected it.
type heapEntry struct {
	reaction *Reaction
	firings  []Firing
}

// WaveHeap orders the reactions of a wave by registration sequence,
// holding each reaction at most once.
type WaveHeap struct {
	entries []*heapEntry

	lookup map[*Reaction]*heapEntry // for dedupe
}

func NewHeap() *WaveHeap {
	return &WaveHeap{
		entries: make([]*heapEntry, 0),
		lookup:  make(map[*Reaction]*heapEntry),
	}
}

// Insert schedules r for f. A reaction already in the heap only records the extra firing.
func (h *WaveHeap) Insert(r *Reaction, f Firing) {
	if entry, ok := h.lookup[r]; ok {
		entry.firings = append(entry.firings, f)
		return
	}

	entry := &heapEntry{reaction: r, firings: []Firing{f}}
	h.lookup[r] = entry
	h.entries = append(h.entries, entry)
	h.up(len(h.entries) - 1)
}

func (h *WaveHeap) InsertAll(reactions []*Reaction, f Firing) {
	for _, r := range reactions {
		h.Insert(r, f)
	}
}

func (h *WaveHeap) Len() int {
	return len(h.entries)
}

// Drain yields entries in registration order, leaving the heap empty.
func (h *WaveHeap) Drain() iter.Seq[*heapEntry] {
	return func(yield func(*heapEntry) bool) {
		for len(h.entries) > 0 {
			entry := h.pop()
			delete(h.lookup, entry.reaction)

			if !yield(entry) {
				return
			}
		}
	}
}

func (h *WaveHeap) pop() *heapEntry {
	last := len(h.entries) - 1
	h.swap(0, last)

	entry := h.entries[last]
	h.entries[last] = nil
	h.entries = h.entries[:last]
	h.down(0)

	return entry
}

func (h *WaveHeap) less(i, j int) bool {
	return h.entries[i].reaction.seq < h.entries[j].reaction.seq
}

func (h *WaveHeap) swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *WaveHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *WaveHeap) down(i int) {
	n := len(h.entries)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2

		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}

		h.swap(i, smallest)
		i = smallest
	}
}
