// Package tokenizer applies a learned merge table to text.
package tokenizer

import (
	"sync"

	"github.com/fastbpe/internal/pairindex"
	"github.com/fastbpe/internal/rules"
	"github.com/fastbpe/internal/vocab"
	"github.com/fastbpe/internal/word"
)

// Marker is appended to every subword that is not the last of its word.
const Marker = vocab.Marker

// Tokenizer holds immutable model data derived from a rule table and is safe
// for concurrent use. Invariants we maintain:
//   - every rule's left, right and merged symbols are interned in syms.
//   - lookup maps (left, right) to the rule's rank and merged symbol; when a
//     pair appears twice the lower rank wins.
//   - reversed[m] gives the parts of the lowest ranked rule producing m.
type Tokenizer struct {
	syms     *word.Interner
	lookup   *pairindex.Lookup
	reversed map[word.ID]word.Pair
	vocab    *vocab.Vocab
	rules    int

	scratchPool sync.Pool
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithVocab restricts output to subwords present in v. Subwords outside the
// vocabulary are split back along the merges that produced them.
func WithVocab(v *vocab.Vocab) Option {
	return func(t *Tokenizer) { t.vocab = v }
}

// New builds a tokenizer for table.
func New(table *rules.Table, opts ...Option) *Tokenizer {
	syms := word.NewInterner()
	pairs := make([]word.Pair, len(table.Rules))
	merged := make([]word.ID, len(table.Rules))
	reversed := make(map[word.ID]word.Pair, len(table.Rules))

	for i, r := range table.Rules {
		p := word.Pair{
			Left:  syms.Intern(r.Left, false),
			Right: syms.Intern(r.Right, r.RightFinal),
		}
		m := syms.Concat(p.Left, p.Right)
		pairs[i], merged[i] = p, m
		if _, ok := reversed[m]; !ok {
			reversed[m] = p
		}
	}

	t := &Tokenizer{
		syms:     syms,
		lookup:   pairindex.NewLookup(pairs, merged, syms.Len()),
		reversed: reversed,
		rules:    len(table.Rules),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Rules is the number of rules the tokenizer was built from.
func (t *Tokenizer) Rules() int { return t.rules }

// ApplyWord returns the tokenization of a single word.
func (t *Tokenizer) ApplyWord(w string) string {
	return string(t.AppendWord(nil, []byte(w)))
}

// ApplyLine returns the tokenization of a line of space separated words.
func (t *Tokenizer) ApplyLine(line string) string {
	return string(t.AppendLine(nil, []byte(line)))
}

// Apply tokenizes every sentence.
func (t *Tokenizer) Apply(sentences []string) []string {
	out := make([]string, len(sentences))
	var buf []byte
	for i, s := range sentences {
		buf = t.AppendLine(buf[:0], []byte(s))
		out[i] = string(buf)
	}
	return out
}

// AppendLine appends the tokenization of line to dst. Words are separated by
// one or more spaces; the output separates every token by a single space.
func (t *Tokenizer) AppendLine(dst, line []byte) []byte {
	return appendLine(dst, line, t.AppendWord)
}

func appendLine(dst, line []byte, appendWord func(dst, w []byte) []byte) []byte {
	first := true
	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && line[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start < 0 {
			continue
		}
		if !first {
			dst = append(dst, ' ')
		}
		dst = appendWord(dst, line[start:i])
		first = false
		start = -1
	}
	return dst
}
