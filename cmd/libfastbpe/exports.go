//go:build cgo

// Command libfastbpe is built with -buildmode=c-shared to expose the applier
// and the learner to C callers.
package main

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"log"
	"runtime/cgo"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/fastbpe/fastbpe"
)

// Return codes of fastbpe_apply_sentence besides the written length.
const (
	codeBufferTooSmall = -1
	codeError          = -2
)

//export fastbpe_create
func fastbpe_create(codesPath *C.char) C.uintptr_t {
	h, err := newApplier(C.GoString(codesPath))
	if err != nil {
		log.Printf("fastbpe_create: %v", err)
		return 0
	}
	return C.uintptr_t(h)
}

//export fastbpe_apply_sentence
func fastbpe_apply_sentence(h C.uintptr_t, in *C.char, inLen C.size_t, out *C.char, outCap C.size_t) C.int64_t {
	var src, dst []byte
	if inLen > 0 {
		src = unsafe.Slice((*byte)(unsafe.Pointer(in)), int(inLen))
	}
	if outCap > 0 {
		dst = unsafe.Slice((*byte)(unsafe.Pointer(out)), int(outCap))
	}

	n, err := applySentence(cgo.Handle(h), src, dst)
	switch {
	case errors.Is(err, fastbpe.ErrBufferTooSmall):
		return codeBufferTooSmall
	case err != nil:
		log.Printf("fastbpe_apply_sentence: %v", err)
		return codeError
	}
	return C.int64_t(n)
}

//export fastbpe_learn
func fastbpe_learn(maxMerges C.int32_t, corpusPath *C.char, outPath *C.char) C.int {
	var out string
	if outPath != nil {
		out = C.GoString(outPath)
	}
	if err := learnTo(int(maxMerges), C.GoString(corpusPath), out); err != nil {
		log.Printf("fastbpe_learn: %v", err)
		return -1
	}
	return 0
}

//export fastbpe_destroy
func fastbpe_destroy(h C.uintptr_t) {
	if err := destroyApplier(cgo.Handle(h)); err != nil {
		log.Printf("fastbpe_destroy: %v", err)
	}
}

func main() {}
