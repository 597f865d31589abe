// Package vocab counts the subword vocabulary of tokenized text and loads it
// back to restrict which subwords a tokenizer may emit.
package vocab

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fastbpe/internal/textio"
)

// Marker is the suffix carried by every subword that is not the last of its word.
const Marker = "@@"

// Counts maps a token, as written in tokenized text, to its number of occurrences.
type Counts map[string]int64

// Add counts every space separated token of r.
func (c Counts) Add(r io.Reader) error {
	return textio.ReadLines(r, func(line []byte) error {
		for _, tok := range bytes.Split(line, []byte{' '}) {
			if len(tok) > 0 {
				c[string(tok)]++
			}
		}
		return nil
	})
}

// AddFile counts the tokens of the file at path.
func (c Counts) AddFile(path string) error {
	rc, err := textio.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return errors.Wrapf(c.Add(rc), "count %s", path)
}

// Sorted returns the tokens by decreasing count, ties in byte order.
func (c Counts) Sorted() []string {
	toks := make([]string, 0, len(c))
	for t := range c {
		toks = append(toks, t)
	}
	sort.Slice(toks, func(i, j int) bool {
		if c[toks[i]] != c[toks[j]] {
			return c[toks[i]] > c[toks[j]]
		}
		return toks[i] < toks[j]
	})
	return toks
}

// WriteTo writes "token count" lines in Sorted order.
func (c Counts) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var (
		n   int64
		buf []byte
	)
	for _, t := range c.Sorted() {
		buf = append(buf[:0], t...)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, c[t], 10)
		buf = append(buf, '\n')
		m, err := bw.Write(buf)
		n += int64(m)
		if err != nil {
			return n, errors.Wrap(err, "write vocab")
		}
	}
	return n, errors.Wrap(bw.Flush(), "write vocab")
}

// Vocab is a set of allowed subwords. Subwords that continue into the next
// token and subwords that end a word are kept apart.
type Vocab struct {
	cont  map[string]int64
	final map[string]int64
}

// Len is the number of entries.
func (v *Vocab) Len() int { return len(v.cont) + len(v.final) }

// Contains reports whether the subword content is allowed in the given
// position.
func (v *Vocab) Contains(content []byte, final bool) bool {
	if final {
		_, ok := v.final[string(content)]
		return ok
	}
	_, ok := v.cont[string(content)]
	return ok
}

// FromCounts builds a vocabulary of the tokens whose count is at least threshold.
func FromCounts(c Counts, threshold int64) *Vocab {
	v := &Vocab{cont: make(map[string]int64), final: make(map[string]int64)}
	for tok, n := range c {
		if n < threshold {
			continue
		}
		if b := []byte(tok); bytes.HasSuffix(b, []byte(Marker)) && len(b) > len(Marker) {
			v.cont[tok[:len(tok)-len(Marker)]] = n
		} else {
			v.final[tok] = n
		}
	}
	return v
}

// Parse reads "token count" lines. Lines that do not parse are skipped and
// counted.
func Parse(r io.Reader, threshold int64) (*Vocab, int, error) {
	c := make(Counts)
	skipped := 0
	err := textio.ReadLines(r, func(line []byte) error {
		i := bytes.LastIndexByte(line, ' ')
		if i <= 0 {
			skipped++
			return nil
		}
		n, err := strconv.ParseInt(string(line[i+1:]), 10, 64)
		if err != nil {
			skipped++
			return nil
		}
		c[string(line[:i])] = n
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}
	return FromCounts(c, threshold), skipped, nil
}

// Load reads the vocabulary file at path.
func Load(path string, threshold int64) (*Vocab, error) {
	rc, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	v, _, err := Parse(rc, threshold)
	return v, errors.Wrapf(err, "load vocab %s", path)
}
