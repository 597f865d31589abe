package utils

import "container/heap"

// CountEntry is a snapshot of a key's frequency at the time it was pushed.
// Entries may go stale; callers re-validate them on Pop.
type CountEntry[K any] struct {
	Key   K
	Count int64
}

// CountHeap is a max-heap on Count. Equal counts are ordered by Less on the
// keys, smaller key first, so the pop order is fully determined by the
// entries regardless of push order.
type CountHeap[K any] struct {
	h countHeap[K]
}

type countHeap[K any] struct {
	items []CountEntry[K]
	less  func(a, b K) bool
}

// NewCountHeap returns an empty heap using less to break count ties.
func NewCountHeap[K any](less func(a, b K) bool) *CountHeap[K] {
	return &CountHeap[K]{h: countHeap[K]{less: less}}
}

func (h countHeap[K]) Len() int { return len(h.items) }
func (h countHeap[K]) Less(i, j int) bool {
	if h.items[i].Count != h.items[j].Count {
		return h.items[i].Count > h.items[j].Count
	}
	return h.less(h.items[i].Key, h.items[j].Key)
}
func (h countHeap[K]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *countHeap[K]) Push(x any)  { h.items = append(h.items, x.(CountEntry[K])) }
func (h *countHeap[K]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

func (h *CountHeap[K]) Len() int { return h.h.Len() }

func (h *CountHeap[K]) Push(key K, count int64) {
	heap.Push(&h.h, CountEntry[K]{Key: key, Count: count})
}

// Pop removes and returns the entry with the highest count.
func (h *CountHeap[K]) Pop() (CountEntry[K], bool) {
	if h.h.Len() == 0 {
		return CountEntry[K]{}, false
	}
	return heap.Pop(&h.h).(CountEntry[K]), true
}

// Peek returns the entry Pop would return without removing it.
func (h *CountHeap[K]) Peek() (CountEntry[K], bool) {
	if h.h.Len() == 0 {
		return CountEntry[K]{}, false
	}
	return h.h.items[0], true
}
