package tokenizer

import "bytes"

// EncoderState tokenizes a byte stream in arbitrary chunks. A word is only
// encoded once the space or newline that ends it has been seen, so the
// trailing partial word of every chunk is held back. The concatenated output
// of Push and Flush equals tokenizing each input line on its own and joining
// the results with newlines.
type EncoderState struct {
	tok *Tokenizer

	buf    []byte
	outBuf []byte
	inLine bool
}

// NewEncoderState returns a new instance of the encoder state.
func NewEncoderState(t *Tokenizer) *EncoderState {
	return &EncoderState{tok: t}
}

// Push consumes the next chunk of raw bytes and emits the tokenized words it
// completes.
func (st *EncoderState) Push(chunk []byte) []byte {
	st.outBuf = st.outBuf[:0]
	for len(chunk) > 0 {
		i := bytes.IndexAny(chunk, " \n")
		if i < 0 {
			st.buf = append(st.buf, chunk...)
			break
		}
		st.buf = append(st.buf, chunk[:i]...)
		st.emitWord()
		if chunk[i] == '\n' {
			st.outBuf = append(st.outBuf, '\n')
			st.inLine = false
		}
		chunk = chunk[i+1:]
	}
	return st.output()
}

// Flush encodes the held back word, if any.
func (st *EncoderState) Flush() []byte {
	st.outBuf = st.outBuf[:0]
	st.emitWord()
	st.inLine = false
	return st.output()
}

func (st *EncoderState) emitWord() {
	if len(st.buf) == 0 {
		return
	}
	if st.inLine {
		st.outBuf = append(st.outBuf, ' ')
	}
	st.outBuf = st.tok.AppendWord(st.outBuf, st.buf)
	st.inLine = true
	st.buf = st.buf[:0]
}

func (st *EncoderState) output() []byte {
	if len(st.outBuf) == 0 {
		return nil
	}
	return append([]byte(nil), st.outBuf...)
}
