// Package textio opens corpus and input streams: "-" for stdin, gzip and zstd
// files detected by their magic bytes, optional Unicode normalization, and a
// line reader that keeps every byte of a line except its terminating newline.
package textio

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

const readBufferSize = 1 << 16

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading. "-" reads standard input, which is not closed
// by the returned reader's Close.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	rc, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "read %s", path)
	}
	rc.closers = append(rc.closers, f)
	return rc, nil
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create opens path for writing. "-" writes to standard output, which Close
// flushes but does not close. Paths ending in .gz or .zst are compressed.
func Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		bw := bufio.NewWriterSize(os.Stdout, readBufferSize)
		return &writeCloser{Writer: bw, closers: []io.Closer{flusher{bw}}}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	bw := bufio.NewWriterSize(f, readBufferSize)
	wc := &writeCloser{Writer: bw}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(bw)
		wc.Writer = zw
		wc.closers = append(wc.closers, zw)
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(bw)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "zstd")
		}
		wc.Writer = enc
		wc.closers = append(wc.closers, enc)
	}
	wc.closers = append(wc.closers, flusher{bw}, f)
	return wc, nil
}

type flusher struct{ *bufio.Writer }

func (f flusher) Close() error { return f.Flush() }

// NewReader wraps r, decompressing it when it starts with a gzip or zstd
// header. Closing the result does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return newReader(r)
}

func newReader(r io.Reader) (*readCloser, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrap(err, "peek header")
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		rc := dec.IOReadCloser()
		return &readCloser{Reader: rc, closers: []io.Closer{rc}}, nil
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr}}, nil
	default:
		return &readCloser{Reader: br}, nil
	}
}

// ReadLines calls fn for every line of r with the trailing "\n" removed. The
// slice passed to fn is only valid until fn returns. A final line without a
// newline is still reported.
func ReadLines(r io.Reader, fn func(line []byte) error) error {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, readBufferSize)
	}
	var long []byte
	for {
		chunk, err := br.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
			long = append(long, chunk...)
			continue
		case err != nil && err != io.EOF:
			return errors.Wrap(err, "read line")
		}

		line := chunk
		if long != nil {
			long = append(long, chunk...)
			line = long
		}
		eof := err == io.EOF
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		} else if eof && len(line) == 0 {
			return nil
		}
		if ferr := fn(line); ferr != nil {
			return ferr
		}
		long = nil
		if eof {
			return nil
		}
	}
}

// Normalizer applies an optional Unicode normalization form to input lines.
// The zero value leaves bytes untouched.
type Normalizer struct {
	form    norm.Form
	enabled bool
}

// ParseNormalization maps a form name (none, nfc, nfd, nfkc, nfkd) to a
// Normalizer. The empty string means none.
func ParseNormalization(name string) (Normalizer, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return Normalizer{}, nil
	case "nfc":
		return Normalizer{form: norm.NFC, enabled: true}, nil
	case "nfd":
		return Normalizer{form: norm.NFD, enabled: true}, nil
	case "nfkc":
		return Normalizer{form: norm.NFKC, enabled: true}, nil
	case "nfkd":
		return Normalizer{form: norm.NFKD, enabled: true}, nil
	default:
		return Normalizer{}, errors.Errorf("unknown normalization %q", name)
	}
}

// Enabled reports whether the normalizer changes its input.
func (n Normalizer) Enabled() bool { return n.enabled }

// Append appends the normalized form of line to dst.
func (n Normalizer) Append(dst, line []byte) []byte {
	if !n.enabled {
		return append(dst, line...)
	}
	return n.form.Append(dst, line...)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Writer returns a writer that normalizes a stream written in arbitrary
// chunks before passing it to w. Close flushes the held back tail.
func (n Normalizer) Writer(w io.Writer) io.WriteCloser {
	if !n.enabled {
		return nopWriteCloser{w}
	}
	return n.form.Writer(w)
}
