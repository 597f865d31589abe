// Package pairindex tracks adjacent symbol pairs: aggregate frequencies with
// reverse word sets while learning merges, and merge ranks while applying them.
package pairindex

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fastbpe/internal/utils"
	"github.com/fastbpe/internal/word"
)

// Counts is a pair frequency table plus, for every pair, the set of word ids
// it was seen in. It is the unit of shard reduction during counting.
type Counts struct {
	Freq  map[word.Pair]int64
	Where map[word.Pair]map[int32]struct{}
}

// NewCounts returns an empty table.
func NewCounts() *Counts {
	return &Counts{
		Freq:  make(map[word.Pair]int64),
		Where: make(map[word.Pair]map[int32]struct{}),
	}
}

// Add counts every adjacent pair of w, weighted by w.Count, and registers id
// as a source of each pair.
func (c *Counts) Add(id int32, w *word.Word) {
	if w.Count == 0 {
		return
	}
	w.Pairs(func(p word.Pair) {
		c.Freq[p] += w.Count
		c.register(p, id)
	})
}

func (c *Counts) register(p word.Pair, id int32) {
	set := c.Where[p]
	if set == nil {
		set = make(map[int32]struct{})
		c.Where[p] = set
	}
	set[id] = struct{}{}
}

// Merge folds o into c. Frequencies are summed, so the result does not depend
// on how words were distributed over shards.
func (c *Counts) Merge(o *Counts) {
	for p, n := range o.Freq {
		c.Freq[p] += n
	}
	for p, set := range o.Where {
		dst := c.Where[p]
		if dst == nil {
			c.Where[p] = set
			continue
		}
		for id := range set {
			dst[id] = struct{}{}
		}
	}
}

// Index is the learning-mode pair index. It owns the word store; words are
// referred to by their position in it.
type Index struct {
	*Counts

	in      *word.Interner
	words   []*word.Word
	minFreq int64

	heap  *utils.CountHeap[word.Pair]
	dirty map[word.Pair]struct{}
}

// New returns an empty index. TopPair ignores pairs with a frequency below
// minFreq.
func New(in *word.Interner, minFreq int64) *Index {
	if minFreq < 1 {
		minFreq = 1
	}
	ix := &Index{
		Counts:  NewCounts(),
		in:      in,
		minFreq: minFreq,
		dirty:   make(map[word.Pair]struct{}),
	}
	ix.heap = utils.NewCountHeap(func(a, b word.Pair) bool {
		return in.ComparePairs(a, b) < 0
	})
	return ix
}

// Words returns the word store.
func (ix *Index) Words() []*word.Word { return ix.words }

// Frequency returns the current aggregate frequency of p.
func (ix *Index) Frequency(p word.Pair) int64 { return ix.Freq[p] }

// AddWord adds w to the store, counts its pairs and returns its id.
func (ix *Index) AddWord(w *word.Word) int32 {
	id := int32(len(ix.words))
	ix.words = append(ix.words, w)
	ix.Add(id, w)
	w.Pairs(func(p word.Pair) { ix.dirty[p] = struct{}{} })
	return id
}

// AddWords adds ws to the store and counts them over the given number of
// shards in parallel. Shard tables are reduced in shard order.
func (ix *Index) AddWords(ctx context.Context, ws []*word.Word, shards int) error {
	base := len(ix.words)
	ix.words = append(ix.words, ws...)
	if shards < 1 {
		shards = 1
	}
	if shards > len(ws) {
		shards = len(ws)
	}
	if shards == 0 {
		return nil
	}

	tables := make([]*Counts, shards)
	per := (len(ws) + shards - 1) / shards
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		lo := s * per
		hi := min(lo+per, len(ws))
		g.Go(func() error {
			c := NewCounts()
			for i := lo; i < hi; i++ {
				if i%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				c.Add(int32(base+i), ws[i])
			}
			tables[s] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range tables {
		if c == nil {
			continue
		}
		ix.Merge(c)
		for p := range c.Freq {
			ix.dirty[p] = struct{}{}
		}
	}
	return nil
}

func (ix *Index) add(p word.Pair, delta int64) {
	n := ix.Freq[p] + delta
	switch {
	case n < 0:
		panic(fmt.Sprintf("pairindex: negative frequency %d for pair (%q, %q)",
			n, ix.in.Text(p.Left), ix.in.Text(p.Right)))
	case n == 0:
		delete(ix.Freq, p)
	default:
		ix.Freq[p] = n
	}
	if delta > 0 {
		ix.dirty[p] = struct{}{}
	}
}

func (ix *Index) flush() {
	for p := range ix.dirty {
		if n := ix.Freq[p]; n > 0 {
			ix.heap.Push(p, n)
		}
	}
	clear(ix.dirty)
}

// TopPair returns the most frequent pair. Ties go to the pair whose left, then
// right, symbol sorts first by content. ok is false when no pair reaches the
// minimum frequency.
func (ix *Index) TopPair() (p word.Pair, freq int64, ok bool) {
	ix.flush()
	for {
		e, ok := ix.heap.Peek()
		if !ok {
			return word.Pair{}, 0, false
		}
		cur := ix.Freq[e.Key]
		if cur == e.Count {
			if cur < ix.minFreq {
				return word.Pair{}, 0, false
			}
			return e.Key, cur, true
		}
		// stale snapshot: replace it with the current frequency
		ix.heap.Pop()
		if cur > 0 {
			ix.heap.Push(e.Key, cur)
		}
	}
}

// ApplyMerge merges every occurrence of p in the words that contain it and
// updates frequencies for the pairs around each merge site. It returns the
// merged symbol and the number of merge sites.
func (ix *Index) ApplyMerge(p word.Pair) (word.ID, int) {
	merged := ix.in.Concat(p.Left, p.Right)
	set := ix.Where[p]
	delete(ix.Where, p)

	sites := 0
	for id := range set {
		w := ix.words[id]
		cnt := w.Count
		sites += w.MergeAll(p, merged, func(r word.MergeResult) {
			ix.add(r.Removed, -cnt)
			if r.HasLeft {
				ix.add(r.LeftLost, -cnt)
				ix.add(r.LeftCreated, cnt)
				ix.register(r.LeftCreated, id)
			}
			if r.HasRight {
				ix.add(r.RightLost, -cnt)
				ix.add(r.RightCreated, cnt)
				ix.register(r.RightCreated, id)
			}
		})
	}

	if n := ix.Freq[p]; n != 0 {
		panic(fmt.Sprintf("pairindex: pair (%q, %q) still has frequency %d after merge",
			ix.in.Text(p.Left), ix.in.Text(p.Right), n))
	}
	return merged, sites
}

// Verify recounts every pair from the word store and compares the result with
// the incrementally maintained frequencies.
func (ix *Index) Verify() error {
	want := NewCounts()
	for id, w := range ix.words {
		want.Add(int32(id), w)
	}
	if len(want.Freq) != len(ix.Freq) {
		return errors.Errorf("pair count mismatch: recount has %d pairs, index has %d", len(want.Freq), len(ix.Freq))
	}
	for p, n := range want.Freq {
		if got := ix.Freq[p]; got != n {
			return errors.Errorf("pair (%q, %q): index frequency %d, recount %d",
				ix.in.Text(p.Left), ix.in.Text(p.Right), got, n)
		}
		for id := range want.Where[p] {
			if _, ok := ix.Where[p][id]; !ok {
				return errors.Errorf("pair (%q, %q): word %d not registered",
					ix.in.Text(p.Left), ix.in.Text(p.Right), id)
			}
		}
	}
	return nil
}
