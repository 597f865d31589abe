package word

import "unicode/utf8"

// Units appends to dst the end offset of every base unit of token and returns
// the extended slice. A base unit is one UTF-8 encoded character; a byte that
// does not start a valid sequence is a unit of its own, so any input splits.
func Units(dst []int, token []byte) []int {
	for i := 0; i < len(token); {
		_, size := utf8.DecodeRune(token[i:])
		i += size
		dst = append(dst, i)
	}
	return dst
}

// Fields returns the words of line. Words are separated by ASCII spaces;
// consecutive spaces do not produce empty words.
func Fields(line []byte) [][]byte {
	var out [][]byte
	start := -1
	for i, b := range line {
		if b == ' ' {
			if start >= 0 {
				out = append(out, line[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, line[start:])
	}
	return out
}

// Word is one distinct corpus token held as a linked list of symbols.
// Merges always collapse into the left slot, so slot 0 is the head for the
// lifetime of the word.
type Word struct {
	Syms  []ID
	Count int64

	prev []int32
	next []int32
	live int
}

// MergeResult describes the pairs touched by a single merge. Removed is the
// pair that was fused; the Left and Right fields describe the neighbour pairs
// that disappeared and the ones that replaced them.
type MergeResult struct {
	Removed Pair

	HasLeft     bool
	LeftLost    Pair
	LeftCreated Pair

	HasRight     bool
	RightLost    Pair
	RightCreated Pair
}

// New splits token into base symbols interned in in. All symbols but the last
// are continuation symbols. An empty token yields an empty word.
func New(in *Interner, token []byte, count int64) *Word {
	ends := Units(nil, token)
	syms := make([]ID, len(ends))
	start := 0
	for i, end := range ends {
		syms[i] = in.Intern(string(token[start:end]), i == len(ends)-1)
		start = end
	}
	return FromSymbols(syms, count)
}

// FromSymbols builds a word over an existing symbol sequence.
func FromSymbols(syms []ID, count int64) *Word {
	n := len(syms)
	w := &Word{
		Syms:  syms,
		Count: count,
		prev:  make([]int32, n),
		next:  make([]int32, n),
		live:  n,
	}
	for i := 0; i < n; i++ {
		w.prev[i] = int32(i - 1)
		w.next[i] = int32(i + 1)
	}
	if n > 0 {
		w.next[n-1] = -1
	}
	return w
}

// Len is the number of live symbols.
func (w *Word) Len() int { return w.live }

// Next returns the slot following i, or -1.
func (w *Word) Next(i int) int { return int(w.next[i]) }

// Symbols returns the live symbols in order.
func (w *Word) Symbols() []ID {
	out := make([]ID, 0, w.live)
	if w.live == 0 {
		return out
	}
	for i := 0; i != -1; i = int(w.next[i]) {
		out = append(out, w.Syms[i])
	}
	return out
}

// Pairs calls fn for every adjacent pair, left to right.
func (w *Word) Pairs(fn func(Pair)) {
	if w.live < 2 {
		return
	}
	for i := 0; w.next[i] != -1; i = int(w.next[i]) {
		fn(Pair{w.Syms[i], w.Syms[w.next[i]]})
	}
}

// Merge fuses the symbol at slot pos with its successor into merged.
// It panics if pos has no successor.
func (w *Word) Merge(pos int, merged ID) MergeResult {
	j := int(w.next[pos])
	if j == -1 {
		panic("word: merge at last symbol")
	}
	a, b := w.Syms[pos], w.Syms[j]
	res := MergeResult{Removed: Pair{a, b}}

	if p := w.prev[pos]; p != -1 {
		res.HasLeft = true
		res.LeftLost = Pair{w.Syms[p], a}
		res.LeftCreated = Pair{w.Syms[p], merged}
	}
	nj := w.next[j]
	if nj != -1 {
		res.HasRight = true
		res.RightLost = Pair{b, w.Syms[nj]}
		res.RightCreated = Pair{merged, w.Syms[nj]}
		w.prev[nj] = int32(pos)
	}

	w.Syms[pos] = merged
	w.next[pos] = nj
	w.prev[j], w.next[j] = -1, -1
	w.Syms[j] = None
	w.live--
	return res
}

// MergeAll merges every non-overlapping occurrence of p, scanning left to
// right, and calls fn with the result of each merge. It returns the number of
// merges performed.
func (w *Word) MergeAll(p Pair, merged ID, fn func(MergeResult)) int {
	if w.live < 2 {
		return 0
	}
	n := 0
	for i := 0; i != -1; {
		j := int(w.next[i])
		if j == -1 {
			break
		}
		if w.Syms[i] == p.Left && w.Syms[j] == p.Right {
			res := w.Merge(i, merged)
			if fn != nil {
				fn(res)
			}
			n++
			i = int(w.next[i])
			continue
		}
		i = j
	}
	return n
}
