//go:build !cgo

// Command libfastbpe needs cgo; without it there is nothing to export.
package main

import "log"

func main() {
	log.Fatal("libfastbpe: build with CGO_ENABLED=1 and -buildmode=c-shared")
}
