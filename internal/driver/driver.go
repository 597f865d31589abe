// Package driver runs a line transformation over a stream on several
// goroutines while keeping the output in input order.
package driver

import (
	"context"
	"io"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fastbpe/internal/textio"
)

// LineFunc appends the transformed line to dst and returns the extended
// buffer. It must not retain line.
type LineFunc func(dst, line []byte) []byte

// Options controls parallelism. Zero values pick defaults.
type Options struct {
	// Workers is the number of goroutines transforming lines; NumCPU by default.
	Workers int
	// ChunkLines is the number of lines handed to a worker at once.
	ChunkLines int
	// InFlight bounds the chunks read but not yet written, 2*Workers by default.
	InFlight int
}

func (o Options) normalize() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkLines <= 0 {
		o.ChunkLines = 256
	}
	if o.InFlight <= 0 {
		o.InFlight = 2 * o.Workers
	}
	return o
}

// Stats summarizes a run.
type Stats struct {
	Lines  int64
	Chunks int64
}

type chunk struct {
	data []byte
	ends []int
	out  chan []byte
}

func (c *chunk) lines(fn func(line []byte)) {
	start := 0
	for _, end := range c.ends {
		fn(c.data[start:end])
		start = end
	}
}

// Run reads lines from r, transforms each with a LineFunc and writes the
// results to w, every line terminated by a newline, in input order.
//
// Every worker calls newFunc once and uses the returned LineFunc exclusively,
// so the function may keep per-worker state such as a cache. Each chunk of
// output reaches w in a single Write call from a single goroutine.
func Run(ctx context.Context, r io.Reader, w io.Writer, newFunc func() LineFunc, opts Options) (Stats, error) {
	opts = opts.normalize()

	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan *chunk, opts.Workers)
	queue := make(chan *chunk, opts.InFlight)

	g.Go(func() error {
		defer close(jobs)
		defer close(queue)

		cur := &chunk{}
		send := func() error {
			if len(cur.ends) == 0 {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			cur.out = make(chan []byte, 1)
			select {
			case queue <- cur:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- cur:
			case <-ctx.Done():
				return ctx.Err()
			}
			stats.Chunks++
			cur = &chunk{}
			return nil
		}

		err := textio.ReadLines(r, func(line []byte) error {
			cur.data = append(cur.data, line...)
			cur.ends = append(cur.ends, len(cur.data))
			stats.Lines++
			if len(cur.ends) < opts.ChunkLines {
				return nil
			}
			return send()
		})
		if err != nil {
			return err
		}
		return send()
	})

	for i := 0; i < opts.Workers; i++ {
		g.Go(func() error {
			fn := newFunc()
			for c := range jobs {
				var out []byte
				c.lines(func(line []byte) {
					out = fn(out, line)
					out = append(out, '\n')
				})
				c.out <- out
			}
			return nil
		})
	}

	g.Go(func() error {
		for c := range queue {
			select {
			case out := <-c.out:
				if _, err := w.Write(out); err != nil {
					return errors.Wrap(err, "write output")
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	err := g.Wait()
	return stats, err
}
