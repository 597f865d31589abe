package utils

const (
	defaultHeapPrealloc = 64
)

// MergeCand is a pending merge of the symbol at Pos with its right neighbour.
type MergeCand struct {
	Rank int32 // lower wins
	Pos  int32 // left slot; lower wins on tie to enforce leftmost
	VerL uint32
	VerR uint32
}

// key packs rank and position so candidates compare with one integer test.
// Both are non-negative.
func (c MergeCand) key() uint64 {
	return uint64(uint32(c.Rank))<<32 | uint64(uint32(c.Pos))
}

// MergeHeap is a min-heap of merge candidates ordered by rank, then position.
// It holds at most a few entries per symbol of the word being encoded.
type MergeHeap struct {
	items []MergeCand
}

// NewMergeHeap returns an empty heap with room for n candidates.
func NewMergeHeap(n int) *MergeHeap {
	if n < defaultHeapPrealloc {
		n = defaultHeapPrealloc
	}
	return &MergeHeap{items: make([]MergeCand, 0, n)}
}

func (h *MergeHeap) Len() int {
	return len(h.items)
}

// Push adds c, moving the hole left by the append up towards the root.
func (h *MergeHeap) Push(c MergeCand) {
	h.items = append(h.items, c)
	k := c.key()
	i := len(h.items) - 1
	for i > 0 {
		p := (i - 1) / 2
		if h.items[p].key() <= k {
			break
		}
		h.items[i] = h.items[p]
		i = p
	}
	h.items[i] = c
}

// Pop removes the candidate with the lowest rank, leftmost on ties.
func (h *MergeHeap) Pop() (MergeCand, bool) {
	n := len(h.items) - 1
	if n < 0 {
		return MergeCand{}, false
	}
	top := h.items[0]
	last := h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.sink(last)
	}
	return top, true
}

// sink places c into the hole at the root.
func (h *MergeHeap) sink(c MergeCand) {
	k := c.key()
	n := len(h.items)
	i := 0
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if r := child + 1; r < n && h.items[r].key() < h.items[child].key() {
			child = r
		}
		if k <= h.items[child].key() {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = c
}

// Reset empties the heap, keeping its storage.
func (h *MergeHeap) Reset() {
	h.items = h.items[:0]
}
