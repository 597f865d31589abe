package word

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func render(in *Interner, w *Word) string {
	var parts []string
	for _, id := range w.Symbols() {
		parts = append(parts, in.Text(id))
	}
	return strings.Join(parts, " ")
}

func TestUnits(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want []int
	}{
		{"empty", nil, nil},
		{"ascii", []byte("abc"), []int{1, 2, 3}},
		{"multibyte", []byte("héé"), []int{1, 3, 5}},
		{"invalid", []byte{0xff, 'a', 0xc3}, []int{1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Units(nil, tc.in))
		})
	}
}

func TestFields(t *testing.T) {
	got := Fields([]byte("  hello  world x "))
	require.Len(t, got, 3)
	require.Equal(t, "hello", string(got[0]))
	require.Equal(t, "world", string(got[1]))
	require.Equal(t, "x", string(got[2]))
	require.Empty(t, Fields(nil))
	require.Empty(t, Fields([]byte("   ")))
}

func TestNewMarksOnlyLastFinal(t *testing.T) {
	in := NewInterner()
	w := New(in, []byte("hello"), 3)
	require.Equal(t, "h e l l o</w>", render(in, w))
	require.Equal(t, int64(3), w.Count)

	l1, l2 := w.Syms[2], w.Syms[3]
	require.Equal(t, l1, l2)
	require.NotEqual(t, w.Syms[3], w.Syms[4])
}

func TestMergeReportsNeighbourPairs(t *testing.T) {
	in := NewInterner()
	w := New(in, []byte("abcd"), 1)
	a, b, c, d := w.Syms[0], w.Syms[1], w.Syms[2], w.Syms[3]
	bc := in.Concat(b, c)

	res := w.Merge(1, bc)
	require.Equal(t, Pair{b, c}, res.Removed)
	require.True(t, res.HasLeft)
	require.Equal(t, Pair{a, b}, res.LeftLost)
	require.Equal(t, Pair{a, bc}, res.LeftCreated)
	require.True(t, res.HasRight)
	require.Equal(t, Pair{c, d}, res.RightLost)
	require.Equal(t, Pair{bc, d}, res.RightCreated)
	require.Equal(t, 3, w.Len())
	require.Equal(t, "a bc d</w>", render(in, w))

	abc := in.Concat(a, bc)
	res = w.Merge(0, abc)
	require.False(t, res.HasLeft)
	require.True(t, res.HasRight)
	require.Equal(t, "abc d</w>", render(in, w))

	abcd := in.Concat(abc, d)
	require.True(t, in.Final(abcd))
	res = w.Merge(0, abcd)
	require.False(t, res.HasLeft)
	require.False(t, res.HasRight)
	require.Equal(t, "abcd</w>", render(in, w))
}

func TestMergeAtLastPanics(t *testing.T) {
	in := NewInterner()
	w := New(in, []byte("ab"), 1)
	require.Panics(t, func() { w.Merge(1, 0) })
}

func TestMergeAllNonOverlapping(t *testing.T) {
	in := NewInterner()
	w := New(in, []byte("aaaaa"), 1)
	a := w.Syms[0]
	aa := in.Concat(a, a)

	var results []MergeResult
	n := w.MergeAll(Pair{a, a}, aa, func(r MergeResult) { results = append(results, r) })
	require.Equal(t, 2, n)
	require.Len(t, results, 2)
	require.Equal(t, "aa aa a</w>", render(in, w))

	// the second merge sees the first merged symbol as its left neighbour
	require.Equal(t, Pair{aa, a}, results[1].LeftLost)
	require.Equal(t, Pair{aa, aa}, results[1].LeftCreated)
}

func TestPairsAndCompare(t *testing.T) {
	in := NewInterner()
	w := New(in, []byte("ba"), 1)
	var pairs []Pair
	w.Pairs(func(p Pair) { pairs = append(pairs, p) })
	require.Equal(t, []Pair{{w.Syms[0], w.Syms[1]}}, pairs)

	aCont := in.Intern("a", false)
	aFin := in.Intern("a", true)
	b := in.Intern("b", false)
	require.Equal(t, -1, in.Compare(aCont, aFin))
	require.Equal(t, 1, in.Compare(aFin, aCont))
	require.Equal(t, -1, in.Compare(aFin, b))
	require.Equal(t, 0, in.ComparePairs(Pair{aCont, b}, Pair{aCont, b}))
	require.Equal(t, -1, in.ComparePairs(Pair{aCont, aFin}, Pair{aCont, b}))
}

func TestParseSymbol(t *testing.T) {
	c, f := ParseSymbol([]byte("lo</w>"))
	require.Equal(t, "lo", string(c))
	require.True(t, f)
	c, f = ParseSymbol([]byte("lo"))
	require.Equal(t, "lo", string(c))
	require.False(t, f)
}

func TestSymbolNotationRoundTrip(t *testing.T) {
	cases := []struct {
		content string
		final   bool
		text    string
	}{
		{"lo", false, "lo"},
		{"lo", true, "lo</w>"},
		{"</w>", false, "</w>\\"},
		{"</w>", true, "</w></w>"},
		{"a</w>\\", false, "a</w>\\\\"},
		{"a\\", false, "a\\"},
		{"\\", true, "\\</w>"},
	}
	for _, tc := range cases {
		text := AppendSymbol(nil, tc.content, tc.final)
		require.Equal(t, tc.text, string(text))
		c, f := ParseSymbol(text)
		require.Equal(t, tc.content, string(c), "text %q", text)
		require.Equal(t, tc.final, f, "text %q", text)
	}
}
