// Package rules reads and writes merge rule tables: one rule per line,
// "left right [frequency]", in rank order.
package rules

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fastbpe/internal/textio"
	"github.com/fastbpe/internal/word"
)

// ErrNoRules is returned when a table contains no valid rule.
var ErrNoRules = errors.New("no valid merge rules")

// Rule merges the symbol Left followed by Right. Only the right symbol can be
// word-final, and the merged symbol inherits its flag.
type Rule struct {
	Left       string
	Right      string
	RightFinal bool

	// Freq is the pair frequency observed when the rule was learned; HasFreq
	// is false for tables written without frequencies.
	Freq    int64
	HasFreq bool
}

// Merged returns the content of the symbol produced by the rule.
func (r Rule) Merged() string { return r.Left + r.Right }

// String renders the rule in table notation.
func (r Rule) String() string {
	b := r.AppendText(nil)
	return string(b)
}

// AppendText appends the rule line, without newline, to dst.
func (r Rule) AppendText(dst []byte) []byte {
	dst = word.AppendSymbol(dst, r.Left, false)
	dst = append(dst, ' ')
	dst = word.AppendSymbol(dst, r.Right, r.RightFinal)
	if r.HasFreq {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, r.Freq, 10)
	}
	return dst
}

// Table is an ordered list of rules; a rule's rank is its index.
type Table struct {
	Rules []Rule
}

// Len is the number of rules.
func (t *Table) Len() int { return len(t.Rules) }

// Append adds a rule with the next rank.
func (t *Table) Append(r Rule) { t.Rules = append(t.Rules, r) }

// LoadStats reports what Parse saw.
type LoadStats struct {
	Lines   int
	Skipped int
}

type pairKey struct {
	left, right string
	final       bool
}

// ParseLine parses one table line.
func ParseLine(line []byte) (Rule, error) {
	fields := bytes.Split(line, []byte{' '})
	if len(fields) != 2 && len(fields) != 3 {
		return Rule{}, errors.Errorf("want 2 or 3 fields, got %d", len(fields))
	}

	left, leftFinal := word.ParseSymbol(fields[0])
	right, rightFinal := word.ParseSymbol(fields[1])
	switch {
	case len(left) == 0 || len(right) == 0:
		return Rule{}, errors.New("empty symbol")
	case leftFinal:
		return Rule{}, errors.Errorf("left symbol %q is word-final", fields[0])
	}

	r := Rule{Left: string(left), Right: string(right), RightFinal: rightFinal}
	if len(fields) == 3 {
		freq, err := strconv.ParseInt(string(fields[2]), 10, 64)
		if err != nil || freq < 0 {
			return Rule{}, errors.Errorf("bad frequency %q", fields[2])
		}
		r.Freq, r.HasFreq = freq, true
	}
	return r, nil
}

// Parse reads a table from r. Malformed and duplicate lines are skipped and
// counted; ErrNoRules is returned, together with the stats, when nothing valid
// remains.
func Parse(r io.Reader) (*Table, LoadStats, error) {
	var (
		t     Table
		stats LoadStats
		seen  = make(map[pairKey]struct{})
	)
	err := textio.ReadLines(r, func(line []byte) error {
		stats.Lines++
		rule, err := ParseLine(line)
		if err != nil {
			stats.Skipped++
			return nil
		}
		k := pairKey{rule.Left, rule.Right, rule.RightFinal}
		if _, dup := seen[k]; dup {
			stats.Skipped++
			return nil
		}
		seen[k] = struct{}{}
		t.Append(rule)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	if t.Len() == 0 {
		return nil, stats, ErrNoRules
	}
	return &t, stats, nil
}

// Load parses the table stored at path. Compressed files are accepted.
func Load(path string) (*Table, LoadStats, error) {
	rc, err := textio.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer rc.Close()

	t, stats, err := Parse(rc)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "load %s", path)
	}
	return t, stats, nil
}

// WriteTo writes the table, one rule per line.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var (
		n   int64
		buf []byte
	)
	for _, r := range t.Rules {
		buf = r.AppendText(buf[:0])
		buf = append(buf, '\n')
		m, err := bw.Write(buf)
		n += int64(m)
		if err != nil {
			return n, errors.Wrap(err, "write rules")
		}
	}
	return n, errors.Wrap(bw.Flush(), "write rules")
}
