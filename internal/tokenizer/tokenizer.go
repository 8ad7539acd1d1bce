// Package tokenizer wraps a BPE codec behind the small interface the chunker needs.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

var loaderOnce sync.Once

// Tiktoken is a Tokenizer over an offline tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads encoding from the embedded BPE ranks; no network access
// is needed.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode returns the token ids of text. Special-token text is encoded as
// ordinary text.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode turns tokens back into their exact bytes. A slice cut inside a
// multi-byte character yields invalid UTF-8 at its edges.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
