package utils

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeHeapOrdersByRankThenPos(t *testing.T) {
	h := NewMergeHeap(0)
	h.Push(MergeCand{Rank: 3, Pos: 0})
	h.Push(MergeCand{Rank: 1, Pos: 5})
	h.Push(MergeCand{Rank: 1, Pos: 2})
	h.Push(MergeCand{Rank: 0, Pos: 9})

	var got []MergeCand
	for h.Len() > 0 {
		c, ok := h.Pop()
		require.True(t, ok)
		got = append(got, c)
	}
	require.Equal(t, []MergeCand{
		{Rank: 0, Pos: 9},
		{Rank: 1, Pos: 2},
		{Rank: 1, Pos: 5},
		{Rank: 3, Pos: 0},
	}, got)

	_, ok := h.Pop()
	require.False(t, ok)
}

func TestMergeHeapRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	h := NewMergeHeap(16)
	var want []MergeCand
	for i := 0; i < 500; i++ {
		c := MergeCand{Rank: int32(r.Intn(50)), Pos: int32(i)}
		want = append(want, c)
		h.Push(c)
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].Rank != want[j].Rank {
			return want[i].Rank < want[j].Rank
		}
		return want[i].Pos < want[j].Pos
	})
	for _, w := range want {
		c, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, w, c)
	}

	h.Push(MergeCand{Rank: 1})
	h.Reset()
	require.Equal(t, 0, h.Len())
}

func TestCountHeapTieBreak(t *testing.T) {
	h := NewCountHeap(func(a, b string) bool { return a < b })
	h.Push("zz", 5)
	h.Push("bb", 7)
	h.Push("aa", 5)
	h.Push("ab", 7)

	top, ok := h.Peek()
	require.True(t, ok)
	require.Equal(t, "ab", top.Key)

	var keys []string
	for h.Len() > 0 {
		e, _ := h.Pop()
		keys = append(keys, e.Key)
	}
	require.Equal(t, []string{"ab", "bb", "aa", "zz"}, keys)

	_, ok = h.Pop()
	require.False(t, ok)
}

func TestMergeHeapInterleaved(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	h := NewMergeHeap(0)
	var ref []MergeCand
	for i := 0; i < 2000; i++ {
		if len(ref) == 0 || r.Intn(3) > 0 {
			c := MergeCand{Rank: int32(r.Intn(8)), Pos: int32(r.Intn(8)), VerL: uint32(i)}
			h.Push(c)
			ref = append(ref, c)
			continue
		}
		best := 0
		for j := range ref {
			if ref[j].key() < ref[best].key() {
				best = j
			}
		}
		c, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, ref[best].key(), c.key())
		for j := range ref {
			if ref[j] == c {
				ref = append(ref[:j], ref[j+1:]...)
				break
			}
		}
		require.Equal(t, len(ref), h.Len())
	}
	_, ok := NewMergeHeap(0).Pop()
	require.False(t, ok)
}
