package word

import (
	"bytes"
	"strings"
)

// EndOfWord is the suffix used in rule tables to mark a word-final symbol.
const EndOfWord = "</w>"

// ID identifies an interned symbol, i.e. a byte span plus its word-final flag.
type ID int32

// None is the ID of a symbol that is not known to an interner.
const None ID = -1

// Pair is two adjacent symbols, left then right.
type Pair struct {
	Left  ID
	Right ID
}

// Interner maps symbol content to dense IDs and back. Continuation and
// word-final symbols with the same bytes get different IDs.
//
// An Interner is not safe for concurrent mutation; once filled it can be shared
// read-only.
type Interner struct {
	cont    map[string]ID
	fin     map[string]ID
	content []string
	final   []bool
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{
		cont: make(map[string]ID),
		fin:  make(map[string]ID),
	}
}

func (in *Interner) table(final bool) map[string]ID {
	if final {
		return in.fin
	}
	return in.cont
}

// Intern returns the ID for content, allocating one if needed.
func (in *Interner) Intern(content string, final bool) ID {
	m := in.table(final)
	if id, ok := m[content]; ok {
		return id
	}
	id := ID(len(in.content))
	m[content] = id
	in.content = append(in.content, content)
	in.final = append(in.final, final)
	return id
}

// Lookup returns the ID of content without allocating a new one.
func (in *Interner) Lookup(content []byte, final bool) (ID, bool) {
	id, ok := in.table(final)[string(content)]
	return id, ok
}

// Concat interns the symbol produced by merging a and b.
func (in *Interner) Concat(a, b ID) ID {
	return in.Intern(in.content[a]+in.content[b], in.final[b])
}

// Len is the number of interned symbols.
func (in *Interner) Len() int { return len(in.content) }

// Content returns the raw bytes of id, without any end-of-word marker.
func (in *Interner) Content(id ID) string { return in.content[id] }

// Final reports whether id is word-final.
func (in *Interner) Final(id ID) bool { return in.final[id] }

// Text returns id in rule table notation.
func (in *Interner) Text(id ID) string {
	return string(AppendSymbol(nil, in.content[id], in.final[id]))
}

// Compare orders symbols by content bytes, then continuation before final.
func (in *Interner) Compare(a, b ID) int {
	if a == b {
		return 0
	}
	if c := strings.Compare(in.content[a], in.content[b]); c != 0 {
		return c
	}
	switch {
	case in.final[a] == in.final[b]:
		return 0
	case in.final[b]:
		return -1
	default:
		return 1
	}
}

// ComparePairs orders pairs by left symbol, then right symbol.
func (in *Interner) ComparePairs(p, q Pair) int {
	if c := in.Compare(p.Left, q.Left); c != 0 {
		return c
	}
	return in.Compare(p.Right, q.Right)
}

// escape is appended to a continuation symbol whose content ends in
// EndOfWord followed by zero or more escape bytes, so it cannot be read back
// as word-final. ParseSymbol drops one.
const escape = '\\'

// needsEscape reports whether s is EndOfWord followed by escape bytes.
func needsEscape(s []byte) bool {
	s = bytes.TrimRight(s, string(escape))
	return bytes.HasSuffix(s, []byte(EndOfWord))
}

// AppendSymbol appends content in rule table notation: EndOfWord follows a
// final symbol, and a continuation symbol that would otherwise read as final
// gets one trailing escape byte.
func AppendSymbol(dst []byte, content string, final bool) []byte {
	dst = append(dst, content...)
	if final {
		return append(dst, EndOfWord...)
	}
	if needsEscape(dst[len(dst)-len(content):]) {
		dst = append(dst, escape)
	}
	return dst
}

// ParseSymbol splits rule table notation into content and final flag. It is
// the inverse of AppendSymbol.
func ParseSymbol(s []byte) (content []byte, final bool) {
	if bytes.HasSuffix(s, []byte(EndOfWord)) {
		return s[:len(s)-len(EndOfWord)], true
	}
	if len(s) > 0 && s[len(s)-1] == escape && needsEscape(s) {
		return s[:len(s)-1], false
	}
	return s, false
}
