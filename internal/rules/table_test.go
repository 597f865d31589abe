package rules

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line    string
		want    Rule
		wantErr bool
	}{
		{line: "l l", want: Rule{Left: "l", Right: "l"}},
		{line: "ll o</w> 12", want: Rule{Left: "ll", Right: "o", RightFinal: true, Freq: 12, HasFreq: true}},
		{line: "\xff \xfe 3", want: Rule{Left: "\xff", Right: "\xfe", Freq: 3, HasFreq: true}},
		{line: "</w>\\ b</w> 5", want: Rule{Left: "</w>", Right: "b", RightFinal: true, Freq: 5, HasFreq: true}},
		{line: "a </w>\\", want: Rule{Left: "a", Right: "</w>"}},
		{line: "", wantErr: true},
		{line: "l", wantErr: true},
		{line: "a b c d", wantErr: true},
		{line: "a b x", wantErr: true},
		{line: "a b -1", wantErr: true},
		{line: "a  b", wantErr: true},
		{line: "a </w>", wantErr: true},
		{line: "a</w> b", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseLine([]byte(tc.line))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.line, got.String())
		})
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	in := strings.Join([]string{
		"l l 10",
		"garbage",
		"ll o 4",
		"l l 3", // duplicate
		"",
		"w o</w>",
	}, "\n") + "\n"

	table, stats, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 6, stats.Lines)
	require.Equal(t, 3, stats.Skipped)
	require.Equal(t, 3, table.Len())
	require.Equal(t, "ll", table.Rules[0].Merged())
	require.Equal(t, "llo", table.Rules[1].Merged())
	require.True(t, table.Rules[2].RightFinal)
	require.False(t, table.Rules[2].HasFreq)
}

func TestParseAllMalformed(t *testing.T) {
	_, stats, err := Parse(strings.NewReader("x\ny y y y\n"))
	require.ErrorIs(t, err, ErrNoRules)
	require.Equal(t, 2, stats.Skipped)

	_, _, err = Parse(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoRules)
}

func TestWriteToRoundTrip(t *testing.T) {
	src := "l l 10\nll o</w> 4\nw o\n"
	table, _, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := table.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(len(src)), n)
	require.Equal(t, src, buf.String())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes")
	require.NoError(t, os.WriteFile(path, []byte("a b 2\nbad\n"), 0o644))

	table, stats, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	require.Equal(t, 1, stats.Skipped)

	_, _, err = Load(filepath.Join(dir, "missing"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(errors.Cause(err)))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("nope\n"), 0o644))
	_, _, err = Load(empty)
	require.ErrorIs(t, err, ErrNoRules)
}
