package tokenizer

import (
	"github.com/fastbpe/internal/utils"
	"github.com/fastbpe/internal/word"
)

// token is a symbol of the encoded word and the byte span it covers.
type token struct {
	id    word.ID
	start int32
	end   int32
}

// AppendWord appends the tokenization of w to dst: its subwords separated by
// spaces, all but the last followed by Marker. An empty word appends nothing.
func (t *Tokenizer) AppendWord(dst, w []byte) []byte {
	if len(w) == 0 {
		return dst
	}

	scratch := t.acquireScratch()
	defer t.releaseScratch(scratch)

	toks := t.encode(scratch, w)
	if t.vocab != nil {
		toks = t.limitVocab(scratch, w, toks)
	}

	for i, tk := range toks {
		dst = append(dst, w[tk.start:tk.end]...)
		if i < len(toks)-1 {
			dst = append(dst, Marker...)
			dst = append(dst, ' ')
		}
	}
	return dst
}

// encode splits w into base symbols and greedily applies the lowest ranked
// merge until none applies. The returned slice aliases scratch.
func (t *Tokenizer) encode(scratch *encodeScratch, w []byte) []token {
	scratch.ends = word.Units(scratch.ends[:0], w)
	n := len(scratch.ends)
	scratch.prepare(n)

	tokens := scratch.tokens
	start := 0
	for i, end := range scratch.ends {
		id, ok := t.syms.Lookup(w[start:end], i == n-1)
		if !ok {
			id = word.None
		}
		tokens[i] = token{id: id, start: int32(start), end: int32(end)}
		start = end
	}

	// doubly linked-list
	prev := scratch.prev
	next := scratch.next
	for i := 0; i < n; i++ {
		prev[i] = int32(i - 1)
		next[i] = int32(i + 1)
	}

	// edge elements
	prev[0] = -1
	next[n-1] = -1

	// per-slot versioning to invalidate heap entries
	liveVersion := scratch.live
	for i := 0; i < n; i++ {
		liveVersion[i] = 0
	}

	h := scratch.heap
	h.Reset()

	pushIfMergeable := func(i int32) {
		j := next[i]
		if j == -1 {
			return
		}

		if rank, _, ok := t.lookup.Lookup(tokens[i].id, tokens[j].id); ok {
			h.Push(utils.MergeCand{
				Rank: rank,
				Pos:  i,
				VerL: liveVersion[i],
				VerR: liveVersion[j],
			})
		}
	}

	for i := int32(0); i != -1 && next[i] != -1; i = next[i] {
		pushIfMergeable(i)
	}

	for {
		c, ok := h.Pop()
		if !ok {
			break
		}
		i := c.Pos

		j := next[i]
		if j == -1 {
			continue // no right neighbour anymore
		}

		// stale entry since at least one side changed after it was pushed
		if liveVersion[i] != c.VerL || liveVersion[j] != c.VerR {
			continue
		}

		rankNow, merged, ok := t.lookup.Lookup(tokens[i].id, tokens[j].id)
		if !ok || rankNow != c.Rank {
			continue
		}

		// collapse into slot i
		tokens[i].id = merged
		tokens[i].end = tokens[j].end

		nj := next[j]
		next[i] = nj
		if nj != -1 {
			prev[nj] = i
		}

		// mark other pointers as dead
		prev[j], next[j] = -1, -1

		liveVersion[i]++
		liveVersion[j]++

		if pi := prev[i]; pi != -1 {
			pushIfMergeable(pi)
		}
		pushIfMergeable(i)
	}

	// slot 0 never dies; we always merge into the left slot
	out := scratch.out[:0]
	for i := int32(0); i != -1; i = next[i] {
		out = append(out, tokens[i])
	}
	scratch.out = out
	return out
}

type encodeScratch struct {
	ends   []int
	tokens []token
	prev   []int32
	next   []int32
	live   []uint32
	out    []token
	split  []token
	heap   *utils.MergeHeap
}

func (t *Tokenizer) acquireScratch() *encodeScratch {
	v := t.scratchPool.Get()
	if v == nil {
		return &encodeScratch{heap: utils.NewMergeHeap(0)}
	}
	return v.(*encodeScratch)
}

func (t *Tokenizer) releaseScratch(sc *encodeScratch) {
	t.scratchPool.Put(sc)
}

func (sc *encodeScratch) prepare(n int) {
	sc.tokens = ensureCapacity(sc.tokens, n)
	sc.prev = ensureCapacity(sc.prev, n)
	sc.next = ensureCapacity(sc.next, n)
	sc.live = ensureCapacity(sc.live, n)
}

func ensureCapacity[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}
