// Package fastbpe learns byte pair encoding merge tables and applies them to
// text. It is the surface host wrappers (the command line tool, the C shared
// library) build on.
package fastbpe

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/fastbpe/internal/config"
	"github.com/fastbpe/internal/driver"
	"github.com/fastbpe/internal/learn"
	"github.com/fastbpe/internal/rules"
	"github.com/fastbpe/internal/textio"
	"github.com/fastbpe/internal/tokenizer"
	"github.com/fastbpe/internal/vocab"
)

var (
	// ErrBufferTooSmall is returned when an output buffer cannot hold the
	// result. Nothing is written in that case.
	ErrBufferTooSmall = errors.New("output buffer too small")
	// ErrClosed is returned by every method of a destroyed applier.
	ErrClosed = errors.New("applier is closed")
	// ErrNoRules is returned when a rule table has no valid line.
	ErrNoRules = rules.ErrNoRules
)

// Config holds learner and applier settings.
type Config = config.Config

// DefaultConfig returns the default settings.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a YAML config file; an empty path gives the defaults.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Encoder interface
type Encoder interface {
	/*
		Feed consumes the next chunk of raw text. It emits the tokenized form of
		every word the chunk completes; a trailing partial word is held back.
		The returned slice is owned by the caller.
	*/
	Feed(chunk []byte) []byte

	/*
		Flush tells the encoder that the stream is complete and returns the
		tokenization of any held back word. After flush the encoder is reset and
		can be reused for a new stream.
	*/
	Flush() []byte
}

// Decoder interface
type Decoder interface {
	/*
		Feed consumes tokenized text and returns the text with subwords rejoined.
		A trailing partial marker is held back until the next call.
	*/
	Feed(tokens []byte) []byte

	// Flush returns what is held back and resets the decoder.
	Flush() []byte
}

// Option configures CreateApplier.
type Option func(*applierOptions)

type applierOptions struct {
	cfg       Config
	vocabPath string
}

// WithConfig sets the applier's settings. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(o *applierOptions) { o.cfg = cfg }
}

// WithVocab restricts output to the subwords listed in the vocabulary file at
// path, as written by GetVocab.
func WithVocab(path string) Option {
	return func(o *applierOptions) { o.vocabPath = path }
}

// Applier tokenizes text with a loaded rule table. It is safe for concurrent
// use until it is closed.
type Applier struct {
	mu     sync.RWMutex
	tok    *tokenizer.Tokenizer
	norm   textio.Normalizer
	cfg    Config
	stats  rules.LoadStats
	rules  int
	closed bool

	bufPool sync.Pool
}

// CreateApplier loads the rule table at codesPath. Malformed lines are
// skipped and counted; a table without any valid line is an error.
func CreateApplier(codesPath string, opts ...Option) (*Applier, error) {
	o := applierOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg.Normalize()
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	n, err := o.cfg.Normalizer()
	if err != nil {
		return nil, err
	}

	table, stats, err := rules.Load(codesPath)
	if err != nil {
		return nil, err
	}

	var topts []tokenizer.Option
	if o.vocabPath != "" {
		v, err := vocab.Load(o.vocabPath, o.cfg.VocabThreshold)
		if err != nil {
			return nil, err
		}
		topts = append(topts, tokenizer.WithVocab(v))
	}

	return &Applier{
		tok:   tokenizer.New(table, topts...),
		norm:  n,
		cfg:   o.cfg,
		stats: stats,
		rules: table.Len(),
	}, nil
}

// Skipped is the number of rule table lines that did not parse.
func (a *Applier) Skipped() int { return a.stats.Skipped }

// Rules is the number of rules in use.
func (a *Applier) Rules() int { return a.rules }

func (a *Applier) acquire() (*tokenizer.Tokenizer, error) {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return nil, ErrClosed
	}
	return a.tok, nil
}

func (a *Applier) release() { a.mu.RUnlock() }

func (a *Applier) getBuf() *[]byte {
	if v := a.bufPool.Get(); v != nil {
		return v.(*[]byte)
	}
	b := make([]byte, 0, 256)
	return &b
}

// appendLine tokenizes one line, normalizing it first when configured.
func (a *Applier) appendLine(tok *tokenizer.Tokenizer, dst, line []byte) []byte {
	if !a.norm.Enabled() {
		return tok.AppendLine(dst, line)
	}
	nb := a.getBuf()
	defer a.bufPool.Put(nb)
	*nb = a.norm.Append((*nb)[:0], line)
	return tok.AppendLine(dst, *nb)
}

// ApplyToBuffer tokenizes in into out and returns the number of bytes
// written. When out is too small it returns ErrBufferTooSmall and leaves out
// untouched.
func (a *Applier) ApplyToBuffer(in, out []byte) (int, error) {
	tok, err := a.acquire()
	if err != nil {
		return 0, err
	}
	defer a.release()

	rb := a.getBuf()
	defer a.bufPool.Put(rb)
	*rb = a.appendLine(tok, (*rb)[:0], in)
	if len(*rb) > len(out) {
		return 0, errors.Wrapf(ErrBufferTooSmall, "need %d bytes, have %d", len(*rb), len(out))
	}
	return copy(out, *rb), nil
}

// ApplyToBuffer is Applier.ApplyToBuffer for handle style callers.
func ApplyToBuffer(a *Applier, in, out []byte) (int, error) {
	return a.ApplyToBuffer(in, out)
}

// Apply tokenizes every sentence.
func (a *Applier) Apply(sentences []string) ([]string, error) {
	tok, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer a.release()

	out := make([]string, len(sentences))
	var buf []byte
	for i, s := range sentences {
		buf = a.appendLine(tok, buf[:0], []byte(s))
		out[i] = string(buf)
	}
	return out, nil
}

// ApplyStream tokenizes r line by line on the configured number of workers
// and writes the lines to w in input order.
func (a *Applier) ApplyStream(ctx context.Context, r io.Reader, w io.Writer) error {
	tok, err := a.acquire()
	if err != nil {
		return err
	}
	defer a.release()

	newFunc := func() driver.LineFunc {
		cache := tokenizer.NewCache(tok, a.cfg.CacheSize)
		if !a.norm.Enabled() {
			return cache.AppendLine
		}
		var nb []byte
		return func(dst, line []byte) []byte {
			nb = a.norm.Append(nb[:0], line)
			return cache.AppendLine(dst, nb)
		}
	}
	_, err = driver.Run(ctx, r, w, newFunc, a.cfg.Driver())
	return err
}

// ApplyFile tokenizes the file at inPath, which may be gzip or zstd
// compressed, into outPath. "-" names stdin and stdout.
func (a *Applier) ApplyFile(ctx context.Context, outPath, inPath string) error {
	rc, err := textio.Open(inPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	wc, err := textio.Create(outPath)
	if err != nil {
		return err
	}
	if err := a.ApplyStream(ctx, rc, wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

type encoder struct {
	st   *tokenizer.EncoderState
	norm textio.Normalizer
	nw   io.WriteCloser
	buf  sliceWriter
}

type sliceWriter struct{ b []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func (e *encoder) Feed(chunk []byte) []byte {
	if !e.norm.Enabled() {
		return e.st.Push(chunk)
	}
	_, _ = e.nw.Write(chunk)
	out := e.st.Push(e.buf.b)
	e.buf.b = e.buf.b[:0]
	return out
}

func (e *encoder) Flush() []byte {
	var out []byte
	if e.norm.Enabled() {
		_ = e.nw.Close()
		out = e.st.Push(e.buf.b)
		e.buf.b = e.buf.b[:0]
		e.nw = e.norm.Writer(&e.buf)
	}
	return append(out, e.st.Flush()...)
}

// NewEncoder returns a streaming encoder. Its output for a stream equals
// tokenizing each line and joining the results with newlines.
func (a *Applier) NewEncoder() (Encoder, error) {
	tok, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer a.release()

	e := &encoder{st: tokenizer.NewEncoderState(tok), norm: a.norm}
	e.nw = a.norm.Writer(&e.buf)
	return e, nil
}

type decoder struct{ st *tokenizer.DecoderState }

func (d decoder) Feed(tokens []byte) []byte { return d.st.Push(tokens) }
func (d decoder) Flush() []byte             { return d.st.Flush() }

// NewDecoder returns a streaming detokenizer.
func NewDecoder() Decoder {
	return decoder{st: tokenizer.NewDecoderState()}
}

// Detokenize rejoins the subwords of a tokenized line.
func Detokenize(line string) string { return tokenizer.Detokenize(line) }

// Close releases the rule table. Later calls return ErrClosed.
func (a *Applier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	a.tok = nil
	return nil
}

// DestroyApplier is Applier.Close for handle style callers.
func DestroyApplier(a *Applier) error { return a.Close() }

// LearnConfig learns at most cfg.MaxMerges rules from the corpus files and
// writes the table to w. Progress goes to logger when it is not nil.
func LearnConfig(ctx context.Context, cfg Config, logger *log.Logger, w io.Writer, corpusPaths ...string) (int, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	lc, err := cfg.Learn(logger)
	if err != nil {
		return 0, err
	}
	table, err := learn.LearnFiles(ctx, lc, corpusPaths...)
	if err != nil {
		return 0, err
	}
	if _, err := table.WriteTo(w); err != nil {
		return 0, err
	}
	return table.Len(), nil
}

// Learn learns at most maxMerges rules from the corpus at corpusPath with
// default settings and writes the table to w. With maxMerges zero nothing is
// written, but the corpus must still open.
func Learn(ctx context.Context, maxMerges int, corpusPath string, w io.Writer) (int, error) {
	if maxMerges == 0 {
		return 0, CheckCorpus(corpusPath)
	}
	cfg := DefaultConfig()
	cfg.MaxMerges = maxMerges
	return LearnConfig(ctx, cfg, nil, w, corpusPath)
}

// CheckCorpus reports the first corpus file that cannot be opened. Stdin,
// named "-", is not touched.
func CheckCorpus(paths ...string) error {
	for _, p := range paths {
		if p == "-" {
			continue
		}
		rc, err := textio.Open(p)
		if err != nil {
			return err
		}
		rc.Close()
	}
	return nil
}

// GetVocab counts the subwords of tokenized files and writes "token count"
// lines, most frequent first.
func GetVocab(w io.Writer, paths ...string) error {
	c := make(vocab.Counts)
	for _, p := range paths {
		if err := c.AddFile(p); err != nil {
			return err
		}
	}
	_, err := c.WriteTo(w)
	return err
}
