package driver

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func upper(dst, line []byte) []byte {
	return append(dst, bytes.ToUpper(line)...)
}

// jittery delays some lines so workers finish out of order.
func jittery(seed int64) func() LineFunc {
	return func() LineFunc {
		r := rand.New(rand.NewSource(seed))
		return func(dst, line []byte) []byte {
			if r.Intn(8) == 0 {
				time.Sleep(time.Duration(r.Intn(200)) * time.Microsecond)
			}
			return upper(dst, line)
		}
	}
}

func TestRunPreservesOrder(t *testing.T) {
	var in, want strings.Builder
	for i := 0; i < 1000; i++ {
		line := fmt.Sprintf("line %d", i)
		if i%17 == 0 {
			line = ""
		}
		in.WriteString(line + "\n")
		want.WriteString(strings.ToUpper(line) + "\n")
	}

	for _, workers := range []int{1, 2, 3, 8} {
		for _, chunkLines := range []int{1, 7, 256} {
			var out bytes.Buffer
			stats, err := Run(context.Background(), strings.NewReader(in.String()), &out, jittery(int64(workers)),
				Options{Workers: workers, ChunkLines: chunkLines})
			require.NoError(t, err)
			require.Equal(t, want.String(), out.String(), "workers=%d chunk=%d", workers, chunkLines)
			require.Equal(t, int64(1000), stats.Lines)
			require.Equal(t, int64((1000+chunkLines-1)/chunkLines), stats.Chunks)
		}
	}
}

func TestRunEmptyInputAndMissingNewline(t *testing.T) {
	var out bytes.Buffer
	stats, err := Run(context.Background(), strings.NewReader(""), &out, func() LineFunc { return upper }, Options{})
	require.NoError(t, err)
	require.Empty(t, out.String())
	require.Zero(t, stats.Lines)

	out.Reset()
	_, err = Run(context.Background(), strings.NewReader("a\n\nb"), &out, func() LineFunc { return upper }, Options{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, "A\n\nB\n", out.String())
}

// chunkRecorder fails after a number of writes and records write sizes.
type chunkRecorder struct {
	writes []string
	failAt int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	if c.failAt > 0 && len(c.writes) == c.failAt {
		return 0, errors.New("disk full")
	}
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

func TestRunWritesWholeChunks(t *testing.T) {
	in := strings.Repeat("ab\n", 10)
	w := &chunkRecorder{}
	_, err := Run(context.Background(), strings.NewReader(in), w, func() LineFunc { return upper }, Options{Workers: 4, ChunkLines: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"AB\nAB\nAB\n", "AB\nAB\nAB\n", "AB\nAB\nAB\n", "AB\n"}, w.writes)
}

func TestRunReportsWriteError(t *testing.T) {
	in := strings.Repeat("x\n", 5000)
	w := &chunkRecorder{failAt: 2}
	_, err := Run(context.Background(), strings.NewReader(in), w, func() LineFunc { return upper }, Options{Workers: 4, ChunkLines: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Len(t, w.writes, 2)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err := Run(ctx, strings.NewReader(strings.Repeat("x\n", 5000)), &out, func() LineFunc { return upper }, Options{Workers: 2, ChunkLines: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunCallsNewFuncPerWorker(t *testing.T) {
	calls := make(chan struct{}, 16)
	newFunc := func() LineFunc {
		calls <- struct{}{}
		return upper
	}
	var out bytes.Buffer
	_, err := Run(context.Background(), strings.NewReader("a\n"), &out, newFunc, Options{Workers: 5})
	require.NoError(t, err)
	require.Len(t, calls, 5)
}
