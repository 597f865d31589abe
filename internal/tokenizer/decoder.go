package tokenizer

import "bytes"

var markerSep = []byte(Marker + " ")

// Detokenize joins the subwords of a tokenized line back into words.
func Detokenize(line string) string {
	return string(AppendDetokenized(nil, []byte(line)))
}

// AppendDetokenized appends line to dst with every "@@ " removed, along with
// a trailing "@@".
func AppendDetokenized(dst, line []byte) []byte {
	for {
		i := bytes.Index(line, markerSep)
		if i < 0 {
			break
		}
		dst = append(dst, line[:i]...)
		line = line[i+len(markerSep):]
	}
	return append(dst, bytes.TrimSuffix(line, []byte(Marker))...)
}

// DecoderState detokenizes a stream in arbitrary chunks. Up to two trailing
// '@' bytes are held back until the next chunk shows whether they start a
// marker.
type DecoderState struct {
	buf    []byte
	outBuf []byte
}

// NewDecoderState returns a new instance of the decoder state.
func NewDecoderState() *DecoderState {
	return &DecoderState{}
}

// Push consumes the next chunk of tokenized bytes and emits the text that
// can no longer change.
func (st *DecoderState) Push(chunk []byte) []byte {
	st.outBuf = st.outBuf[:0]
	st.buf = append(st.buf, chunk...)

	for {
		i := bytes.IndexByte(st.buf, '\n')
		if i < 0 {
			break
		}
		st.outBuf = AppendDetokenized(st.outBuf, st.buf[:i])
		st.outBuf = append(st.outBuf, '\n')
		st.buf = st.buf[i+1:]
	}

	rest := st.buf
	for {
		i := bytes.Index(rest, markerSep)
		if i < 0 {
			break
		}
		st.outBuf = append(st.outBuf, rest[:i]...)
		rest = rest[i+len(markerSep):]
	}

	hold := 0
	for hold < len(Marker) && hold < len(rest) && rest[len(rest)-1-hold] == '@' {
		hold++
	}
	st.outBuf = append(st.outBuf, rest[:len(rest)-hold]...)
	st.buf = append(st.buf[:0], rest[len(rest)-hold:]...)

	return st.output()
}

// Flush emits whatever is held back, dropping a dangling marker.
func (st *DecoderState) Flush() []byte {
	st.outBuf = AppendDetokenized(st.outBuf[:0], st.buf)
	st.buf = st.buf[:0]
	return st.output()
}

func (st *DecoderState) output() []byte {
	if len(st.outBuf) == 0 {
		return nil
	}
	return append([]byte(nil), st.outBuf...)
}
