//go:build cgo

package main

import (
	"context"
	"os"
	"runtime/cgo"

	"github.com/pkg/errors"

	"github.com/fastbpe/fastbpe"
	"github.com/fastbpe/internal/textio"
)

var errBadHandle = errors.New("invalid applier handle")

func newApplier(codesPath string) (cgo.Handle, error) {
	a, err := fastbpe.CreateApplier(codesPath)
	if err != nil {
		return 0, err
	}
	return cgo.NewHandle(a), nil
}

func lookup(h cgo.Handle) (a *fastbpe.Applier, err error) {
	if h == 0 {
		return nil, errBadHandle
	}
	// Value panics on a handle that was already deleted.
	defer func() {
		if recover() != nil {
			a, err = nil, errBadHandle
		}
	}()
	a, ok := h.Value().(*fastbpe.Applier)
	if !ok {
		return nil, errBadHandle
	}
	return a, nil
}

func applySentence(h cgo.Handle, in, out []byte) (int, error) {
	a, err := lookup(h)
	if err != nil {
		return 0, err
	}
	return a.ApplyToBuffer(in, out)
}

// learnTo writes the learned table to outPath, or to stdout when it is empty.
// A file is not left behind when learning fails.
func learnTo(maxMerges int, corpusPath, outPath string) error {
	if outPath == "" {
		outPath = "-"
	}
	if err := fastbpe.CheckCorpus(corpusPath); err != nil {
		return err
	}
	wc, err := textio.Create(outPath)
	if err != nil {
		return err
	}
	if _, err := fastbpe.Learn(context.Background(), maxMerges, corpusPath, wc); err != nil {
		wc.Close()
		if outPath != "-" {
			os.Remove(outPath)
		}
		return err
	}
	return wc.Close()
}

func destroyApplier(h cgo.Handle) error {
	a, err := lookup(h)
	if err != nil {
		return err
	}
	h.Delete()
	return fastbpe.DestroyApplier(a)
}
