package tokenizer

import "github.com/fastbpe/internal/word"

// limitVocab replaces every token missing from the vocabulary by the parts of
// the merge that produced it, recursively, until each part is either in the
// vocabulary or a base symbol. Unknown symbols are kept as they are.
func (t *Tokenizer) limitVocab(scratch *encodeScratch, w []byte, toks []token) []token {
	out := scratch.split[:0]
	for _, tk := range toks {
		if tk.id == word.None || t.vocab.Contains(w[tk.start:tk.end], t.syms.Final(tk.id)) {
			out = append(out, tk)
			continue
		}
		out = t.decompose(out, tk.id, tk.start)
	}
	scratch.split = out
	return out
}

func (t *Tokenizer) decompose(dst []token, id word.ID, start int32) []token {
	p, ok := t.reversed[id]
	if !ok {
		return append(dst, token{id: id, start: start, end: start + int32(len(t.syms.Content(id)))})
	}

	mid := start + int32(len(t.syms.Content(p.Left)))
	if t.vocab.Contains([]byte(t.syms.Content(p.Left)), false) {
		dst = append(dst, token{id: p.Left, start: start, end: mid})
	} else {
		dst = t.decompose(dst, p.Left, start)
	}

	end := mid + int32(len(t.syms.Content(p.Right)))
	if t.vocab.Contains([]byte(t.syms.Content(p.Right)), t.syms.Final(p.Right)) {
		dst = append(dst, token{id: p.Right, start: mid, end: end})
	} else {
		dst = t.decompose(dst, p.Right, mid)
	}
	return dst
}
