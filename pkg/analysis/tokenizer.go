package analysis

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName matches the gpt-4o family closely enough for budgeting.
const encodingName = "cl100k_base"

// Tokenizer counts and truncates text by model tokens. When the BPE tables
// cannot be loaded it falls back to an estimate of four bytes per token.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the encoding, or returns an estimating tokenizer.
func NewTokenizer() *Tokenizer {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Tokenizer{}
	}
	return &Tokenizer{enc: enc}
}

// Exact reports whether counts come from the real encoding.
func (t *Tokenizer) Exact() bool {
	return t.enc != nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// Truncate returns the longest prefix of text within max tokens.
func (t *Tokenizer) Truncate(text string, max int) string {
	if max <= 0 || t.Count(text) <= max {
		return text
	}
	if t.enc != nil {
		tokens := t.enc.Encode(text, nil, nil)
		out := t.enc.Decode(tokens[:max])
		// a cut inside a multi-byte rune leaves invalid trailing bytes
		for len(out) > 0 {
			r, size := utf8.DecodeLastRuneInString(out)
			if r != utf8.RuneError || size > 1 {
				break
			}
			out = out[:len(out)-size]
		}
		return out
	}

	limit := max * 4
	if limit >= len(text) {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
