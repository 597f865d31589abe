// Command fastbpe learns and applies byte pair encoding merge tables.
//
//	fastbpe [flags] learnbpe <nCodes> <corpus>...
//	fastbpe [flags] applybpe <output> <input> <codes> [vocab]
//	fastbpe [flags] applybpe_stream <codes> [vocab]
//	fastbpe [flags] getvocab <input>...
//	fastbpe detok
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fastbpe/fastbpe"
)

const usage = `usage: fastbpe [flags] <command> <args>

commands:
  learnbpe <nCodes> <corpus>...              learn codes, write them to stdout
  applybpe <output> <input> <codes> [vocab]  apply codes to a file
  applybpe_stream <codes> [vocab]            apply codes to stdin
  getvocab <input>...                        count subwords of tokenized files
  detok                                      rejoin subwords read from stdin

flags:
`

type cli struct {
	flags *flag.FlagSet

	configPath string
	workers    int
	minFreq    int64
	shards     int
	normalize  string
	threshold  int64
	verify     bool
	quiet      bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	fs := flag.NewFlagSet("fastbpe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configPath, "config", "", "YAML config `file`")
	fs.IntVar(&c.workers, "workers", 0, "apply with `n` goroutines")
	fs.Int64Var(&c.minFreq, "min-freq", 0, "stop learning below pair frequency `n`")
	fs.IntVar(&c.shards, "shards", 0, "count pairs on `n` goroutines")
	fs.StringVar(&c.normalize, "normalize", "", "unicode `form` applied to input (nfc, nfd, nfkc, nfkd)")
	fs.Int64Var(&c.threshold, "vocab-threshold", 0, "ignore vocabulary entries seen fewer than `n` times")
	fs.BoolVar(&c.verify, "verify", false, "recount pairs after every merge (slow)")
	fs.BoolVar(&c.quiet, "q", false, "no progress output")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	c.flags = fs
	return c
}

// config loads the config file and applies the flags that were set on top.
func (c *cli) config() (fastbpe.Config, error) {
	cfg, err := fastbpe.LoadConfig(c.configPath)
	if err != nil {
		return cfg, err
	}
	c.flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = c.workers
		case "min-freq":
			cfg.MinFrequency = c.minFreq
		case "shards":
			cfg.Shards = c.shards
		case "normalize":
			cfg.Normalization = c.normalize
		case "vocab-threshold":
			cfg.VocabThreshold = c.threshold
		case "verify":
			cfg.Verify = c.verify
		}
	})
	return cfg, cfg.Validate()
}

func (c *cli) run(ctx context.Context, args []string) error {
	if err := c.flags.Parse(args); err != nil {
		return err
	}
	rest := c.flags.Args()
	if len(rest) == 0 {
		c.flags.Usage()
		return errors.New("missing command")
	}

	cfg, err := c.config()
	if err != nil {
		return err
	}

	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "learnbpe":
		if len(rest) < 2 {
			return errors.New("learnbpe: need <nCodes> <corpus>...")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			return errors.Errorf("learnbpe: invalid number of codes %q", rest[0])
		}
		if n == 0 {
			return fastbpe.CheckCorpus(rest[1:]...)
		}
		cfg.MaxMerges = n
		var logger *log.Logger
		if !c.quiet {
			logger = log.New(c.stderr, "", log.LstdFlags)
		}
		_, err = fastbpe.LearnConfig(ctx, cfg, logger, c.stdout, rest[1:]...)
		return err

	case "applybpe":
		if len(rest) < 3 || len(rest) > 4 {
			return errors.New("applybpe: need <output> <input> <codes> [vocab]")
		}
		a, err := c.applier(cfg, rest[2], rest[3:])
		if err != nil {
			return err
		}
		defer a.Close()
		return a.ApplyFile(ctx, rest[0], rest[1])

	case "applybpe_stream":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("applybpe_stream: need <codes> [vocab]")
		}
		a, err := c.applier(cfg, rest[0], rest[1:])
		if err != nil {
			return err
		}
		defer a.Close()
		enc, err := a.NewEncoder()
		if err != nil {
			return err
		}
		return pump(c.stdin, c.stdout, enc.Feed, enc.Flush)

	case "getvocab":
		if len(rest) < 1 {
			return errors.New("getvocab: need <input>...")
		}
		return fastbpe.GetVocab(c.stdout, rest...)

	case "detok":
		dec := fastbpe.NewDecoder()
		return pump(c.stdin, c.stdout, dec.Feed, dec.Flush)
	}

	c.flags.Usage()
	return errors.Errorf("unknown command %q", cmd)
}

func (c *cli) applier(cfg fastbpe.Config, codes string, vocab []string) (*fastbpe.Applier, error) {
	opts := []fastbpe.Option{fastbpe.WithConfig(cfg)}
	if len(vocab) == 1 {
		opts = append(opts, fastbpe.WithVocab(vocab[0]))
	}
	a, err := fastbpe.CreateApplier(codes, opts...)
	if err != nil {
		return nil, err
	}
	if n := a.Skipped(); n > 0 && !c.quiet {
		fmt.Fprintf(c.stderr, "skipped %d malformed lines in %s\n", n, codes)
	}
	return a, nil
}

// pump copies r to w through a streaming transform, writing whatever each
// read produces right away.
func pump(r io.Reader, w io.Writer, feed func([]byte) []byte, flush func() []byte) error {
	buf := make([]byte, 1<<16)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(feed(buf[:n])); werr != nil {
				return errors.Wrap(werr, "write")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read")
		}
	}
	_, err := w.Write(flush())
	return errors.Wrap(err, "write")
}

func main() {
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("fastbpe: %v", err)
	}
}
