package pairindex

import "github.com/fastbpe/internal/word"

const defaultFastLookupSize = 256

const missing = ^uint64(0)

// Lookup maps an adjacent symbol pair to its merge rank and merged symbol using
// a hybrid approach:
//   - a dense table for pairs where both symbols are < fastLookupSize (O(1) lookup),
//     which covers the base characters of most alphabets
//   - a map fallback for larger pairs
//
// A Lookup is immutable and safe for concurrent use.
type Lookup struct {
	fastLookup     []uint64
	fastLookupSize int
	fallback       map[uint64]uint64
	n              int
}

func packPair(a, b word.ID) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func packInfo(rank int32, merged word.ID) uint64 {
	return uint64(uint32(rank))<<32 | uint64(uint32(merged))
}

// NewLookup builds a lookup where pairs[i] has rank i and merges into merged[i].
// numSymbols is the size of the symbol space. Later duplicates of a pair are
// ignored, so the lowest rank wins.
func NewLookup(pairs []word.Pair, merged []word.ID, numSymbols int) *Lookup {
	fastLookupSize := defaultFastLookupSize
	if numSymbols < fastLookupSize {
		fastLookupSize = numSymbols
	}

	fastLookup := make([]uint64, fastLookupSize*fastLookupSize)
	for i := range fastLookup {
		fastLookup[i] = missing
	}

	fallback := make(map[uint64]uint64)
	pl := &Lookup{
		fastLookup:     fastLookup,
		fastLookupSize: fastLookupSize,
		fallback:       fallback,
	}

	for i, p := range pairs {
		if _, _, ok := pl.Lookup(p.Left, p.Right); ok {
			continue
		}
		value := packInfo(int32(i), merged[i])
		if int(p.Left) < fastLookupSize && int(p.Right) < fastLookupSize {
			fastLookup[int(p.Left)*fastLookupSize+int(p.Right)] = value
		} else {
			fallback[packPair(p.Left, p.Right)] = value
		}
		pl.n++
	}

	return pl
}

// Len is the number of distinct pairs in the lookup.
func (pl *Lookup) Len() int { return pl.n }

// Lookup returns the rank of the pair (a, b) and the symbol it merges into.
func (pl *Lookup) Lookup(a, b word.ID) (rank int32, merged word.ID, ok bool) {
	if a < 0 || b < 0 {
		return 0, word.None, false
	}

	var value uint64
	if int(a) < pl.fastLookupSize && int(b) < pl.fastLookupSize {
		value = pl.fastLookup[int(a)*pl.fastLookupSize+int(b)]
		if value == missing {
			return 0, word.None, false
		}
	} else {
		var found bool
		value, found = pl.fallback[packPair(a, b)]
		if !found {
			return 0, word.None, false
		}
	}

	return int32(value >> 32), word.ID(uint32(value)), true
}
