package pairindex

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastbpe/internal/word"
)

type corpusWord struct {
	text  string
	count int64
}

var tiny = []corpusWord{
	{"low", 5},
	{"lower", 2},
	{"newest", 6},
	{"widest", 3},
}

func buildIndex(t *testing.T, corpus []corpusWord, minFreq int64, shards int) (*Index, *word.Interner) {
	t.Helper()
	in := word.NewInterner()
	ws := make([]*word.Word, 0, len(corpus))
	for _, cw := range corpus {
		ws = append(ws, word.New(in, []byte(cw.text), cw.count))
	}
	ix := New(in, minFreq)
	require.NoError(t, ix.AddWords(context.Background(), ws, shards))
	return ix, in
}

func pairText(in *word.Interner, p word.Pair) string {
	return in.Text(p.Left) + " " + in.Text(p.Right)
}

func TestAddWordCountsPairs(t *testing.T) {
	ix, in := buildIndex(t, tiny, 1, 1)
	require.NoError(t, ix.Verify())

	es := word.Pair{Left: in.Intern("e", false), Right: in.Intern("s", false)}
	st := word.Pair{Left: in.Intern("s", false), Right: in.Intern("t", true)}
	require.Equal(t, int64(9), ix.Frequency(es))
	require.Equal(t, int64(9), ix.Frequency(st))

	lo := word.Pair{Left: in.Intern("l", false), Right: in.Intern("o", false)}
	require.Equal(t, int64(7), ix.Frequency(lo))
	require.Len(t, ix.Where[lo], 2)
}

func TestTopPairTieBreakIsLexicographic(t *testing.T) {
	ix, in := buildIndex(t, tiny, 1, 1)

	// "e s" and "s t</w>" both have frequency 9, "e s" sorts first
	p, freq, ok := ix.TopPair()
	require.True(t, ok)
	require.Equal(t, int64(9), freq)
	require.Equal(t, "e s", pairText(in, p))
}

func TestApplyMergeKeepsFrequenciesExact(t *testing.T) {
	ix, in := buildIndex(t, tiny, 1, 1)

	var learned []string
	for i := 0; i < 20; i++ {
		p, _, ok := ix.TopPair()
		if !ok {
			break
		}
		learned = append(learned, pairText(in, p))
		ix.ApplyMerge(p)
		require.NoError(t, ix.Verify(), "after merge %d", i)
	}
	require.GreaterOrEqual(t, len(learned), 3)
	require.Equal(t, []string{"e s", "es t</w>", "l o"}, learned[:3])
}

func TestApplyMergeRepeatedSymbols(t *testing.T) {
	ix, in := buildIndex(t, []corpusWord{{"aaaaa", 2}, {"aaa", 1}}, 1, 1)

	p, freq, ok := ix.TopPair()
	require.True(t, ok)
	require.Equal(t, "a a", pairText(in, p))
	// aaaaa: 3 non-final (a,a) pairs * 2, aaa: 1 * 1
	require.Equal(t, int64(7), freq)

	merged, sites := ix.ApplyMerge(p)
	require.Equal(t, "aa", in.Text(merged))
	require.Equal(t, 3, sites)
	require.Equal(t, int64(0), ix.Frequency(p))
	require.NoError(t, ix.Verify())
}

func TestMinFrequencyStopsSelection(t *testing.T) {
	ix, _ := buildIndex(t, []corpusWord{{"ab", 1}, {"cd", 1}}, 2, 1)
	_, _, ok := ix.TopPair()
	require.False(t, ok)

	ix2, in := buildIndex(t, []corpusWord{{"ab", 2}, {"cd", 1}}, 2, 1)
	p, _, ok := ix2.TopPair()
	require.True(t, ok)
	require.Equal(t, "a b</w>", pairText(in, p))
	ix2.ApplyMerge(p)
	_, _, ok = ix2.TopPair()
	require.False(t, ok)
}

func randomCorpus(r *rand.Rand, n int) []corpusWord {
	const alphabet = "abcde"
	out := make([]corpusWord, 0, n)
	seen := map[string]bool{}
	for len(out) < n {
		l := 1 + r.Intn(8)
		b := make([]byte, l)
		for i := range b {
			b[i] = alphabet[r.Intn(len(alphabet))]
		}
		if seen[string(b)] {
			continue
		}
		seen[string(b)] = true
		out = append(out, corpusWord{string(b), int64(1 + r.Intn(5))})
	}
	return out
}

func TestShardCountDoesNotChangeMerges(t *testing.T) {
	corpus := randomCorpus(rand.New(rand.NewSource(7)), 300)

	run := func(shards int) []string {
		ix, in := buildIndex(t, corpus, 2, shards)
		var out []string
		for i := 0; i < 60; i++ {
			p, freq, ok := ix.TopPair()
			if !ok {
				break
			}
			out = append(out, fmt.Sprintf("%s %d", pairText(in, p), freq))
			ix.ApplyMerge(p)
		}
		require.NoError(t, ix.Verify())
		return out
	}

	want := run(1)
	require.NotEmpty(t, want)
	for _, shards := range []int{2, 3, 8, 1000} {
		require.Equal(t, want, run(shards), "shards=%d", shards)
	}
}

func TestNegativeFrequencyPanics(t *testing.T) {
	ix, in := buildIndex(t, []corpusWord{{"ab", 1}}, 1, 1)
	require.Panics(t, func() {
		ix.add(word.Pair{Left: in.Intern("x", false), Right: in.Intern("y", false)}, -1)
	})
}

func TestLookup(t *testing.T) {
	pairs := []word.Pair{{Left: 1, Right: 2}, {Left: 300, Right: 4}, {Left: 1, Right: 2}, {Left: 5, Right: 400}}
	merged := []word.ID{10, 11, 12, 13}
	pl := NewLookup(pairs, merged, 500)
	require.Equal(t, 3, pl.Len())

	rank, m, ok := pl.Lookup(1, 2)
	require.True(t, ok)
	require.Equal(t, int32(0), rank)
	require.Equal(t, word.ID(10), m)

	rank, m, ok = pl.Lookup(300, 4)
	require.True(t, ok)
	require.Equal(t, int32(1), rank)
	require.Equal(t, word.ID(11), m)

	rank, _, ok = pl.Lookup(5, 400)
	require.True(t, ok)
	require.Equal(t, int32(3), rank)

	_, _, ok = pl.Lookup(2, 1)
	require.False(t, ok)
	_, _, ok = pl.Lookup(word.None, 1)
	require.False(t, ok)
}
