// Package learn builds a merge rule table from a corpus.
package learn

import (
	"context"
	"io"
	"log"
	"runtime"
	"sort"

	"github.com/pkg/errors"

	"github.com/fastbpe/internal/pairindex"
	"github.com/fastbpe/internal/rules"
	"github.com/fastbpe/internal/textio"
	"github.com/fastbpe/internal/word"
)

// State is the learner's position in its run.
type State int

const (
	Idle State = iota
	Counting
	Selecting
	Merging
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Counting:
		return "counting"
	case Selecting:
		return "selecting"
	case Merging:
		return "merging"
	case Done:
		return "done"
	}
	return "unknown"
}

// ErrDone is returned when a finished learner is fed more input.
var ErrDone = errors.New("learner already finished")

// Config controls a learning run.
type Config struct {
	// MaxMerges caps the number of rules learned.
	MaxMerges int
	// MinFrequency is the lowest pair frequency that can still be merged.
	MinFrequency int64
	// Shards is the number of goroutines used for the initial pair count;
	// zero means one per CPU.
	Shards int
	// Normalizer is applied to every corpus line before splitting.
	Normalizer textio.Normalizer
	// Logger receives progress messages; nil disables them.
	Logger *log.Logger
	// Verify recounts all pairs after every merge. Slow; for debugging.
	Verify bool
}

// Learner accumulates word counts and then learns merges over them.
type Learner struct {
	cfg   Config
	state State

	counts map[string]int64
	total  int64
	buf    []byte

	in    *word.Interner
	ix    *pairindex.Index
	table rules.Table
}

// New returns an idle learner.
func New(cfg Config) *Learner {
	if cfg.MinFrequency < 1 {
		cfg.MinFrequency = 1
	}
	if cfg.Shards <= 0 {
		cfg.Shards = runtime.NumCPU()
	}
	return &Learner{
		cfg:    cfg,
		counts: make(map[string]int64),
		in:     word.NewInterner(),
	}
}

// State returns the current state.
func (l *Learner) State() State { return l.state }

func (l *Learner) logf(format string, args ...any) {
	if l.cfg.Logger != nil {
		l.cfg.Logger.Printf(format, args...)
	}
}

// AddWord records count occurrences of token.
func (l *Learner) AddWord(token []byte, count int64) error {
	if l.state > Counting {
		return ErrDone
	}
	l.state = Counting
	if len(token) == 0 || count <= 0 {
		return nil
	}
	l.counts[string(token)] += count
	l.total += count
	return nil
}

// AddText counts the words of every line of r.
func (l *Learner) AddText(r io.Reader) error {
	if l.state > Counting {
		return ErrDone
	}
	l.state = Counting
	return textio.ReadLines(r, func(line []byte) error {
		if l.cfg.Normalizer.Enabled() {
			l.buf = l.cfg.Normalizer.Append(l.buf[:0], line)
			line = l.buf
		}
		for _, tok := range word.Fields(line) {
			l.counts[string(tok)]++
			l.total++
		}
		return nil
	})
}

// AddFile counts the words of the file at path; "-" is standard input.
func (l *Learner) AddFile(path string) error {
	rc, err := textio.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return errors.Wrapf(l.AddText(rc), "read corpus %s", path)
}

// Learn runs the merge loop to completion and returns the table in rank
// order. Learning stops after MaxMerges rules or when no pair is frequent
// enough, whichever comes first.
func (l *Learner) Learn(ctx context.Context) (*rules.Table, error) {
	if l.state == Done {
		return &l.table, nil
	}
	if l.ix == nil {
		l.state = Counting
		if err := l.seed(ctx); err != nil {
			return nil, err
		}
	}

	for l.table.Len() < l.cfg.MaxMerges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.state = Selecting
		p, freq, ok := l.ix.TopPair()
		if !ok {
			break
		}

		l.state = Merging
		l.table.Append(rules.Rule{
			Left:       l.in.Content(p.Left),
			Right:      l.in.Content(p.Right),
			RightFinal: l.in.Final(p.Right),
			Freq:       freq,
			HasFreq:    true,
		})
		l.ix.ApplyMerge(p)
		if l.cfg.Verify {
			if err := l.ix.Verify(); err != nil {
				panic(errors.Wrapf(err, "after merge %d", l.table.Len()))
			}
		}
		l.progress(p, freq)
	}

	l.state = Done
	l.logf("learned %d merges", l.table.Len())
	return &l.table, nil
}

// seed builds the word store in content order so word ids do not depend on
// map iteration, then counts pairs over the configured shards.
func (l *Learner) seed(ctx context.Context) error {
	tokens := make([]string, 0, len(l.counts))
	for tok := range l.counts {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	ws := make([]*word.Word, len(tokens))
	for i, tok := range tokens {
		ws[i] = word.New(l.in, []byte(tok), l.counts[tok])
	}
	l.logf("read %d words (%d unique), %d base symbols", l.total, len(ws), l.in.Len())

	ix := pairindex.New(l.in, l.cfg.MinFrequency)
	if err := ix.AddWords(ctx, ws, l.cfg.Shards); err != nil {
		return errors.Wrap(err, "count pairs")
	}
	l.ix = ix
	l.counts = nil
	return nil
}

func (l *Learner) progress(p word.Pair, freq int64) {
	n := l.table.Len()
	if l.cfg.Logger == nil || l.cfg.MaxMerges < 100 {
		return
	}
	if step := l.cfg.MaxMerges / 100; n%step == 0 {
		l.logf("merge %d/%d: %q + %q (freq %d)",
			n, l.cfg.MaxMerges, l.in.Text(p.Left), l.in.Text(p.Right), freq)
	}
}

// LearnFiles counts the words of every path and learns a table from them.
func LearnFiles(ctx context.Context, cfg Config, paths ...string) (*rules.Table, error) {
	l := New(cfg)
	for _, p := range paths {
		if err := l.AddFile(p); err != nil {
			return nil, err
		}
	}
	return l.Learn(ctx)
}
