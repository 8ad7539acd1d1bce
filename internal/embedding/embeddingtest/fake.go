// Package embeddingtest provides a deterministic embedding.Provider for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"medikacom/kgrag/internal/embedding"
)

// Fake hashes each lower-cased word into one of Dim buckets, so texts that
// share words are similar under cosine.
type Fake struct {
	Dim int
	// FailOn makes any text containing one of these substrings fail alone.
	FailOn []string
	// Err, when set, fails the whole call.
	Err error

	mu    sync.Mutex
	calls int
	texts []string
	modes []embedding.Mode
}

var _ embedding.Provider = (*Fake)(nil)

// New returns a Fake with dim buckets.
func New(dim int) *Fake { return &Fake{Dim: dim} }

// Dimension returns Dim.
func (f *Fake) Dimension() int { return f.Dim }

// Embed returns bag-of-words vectors; texts matching FailOn get nil.
func (f *Fake) Embed(_ context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.texts = append(f.texts, texts...)
	f.modes = append(f.modes, mode)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.fails(t) {
			continue
		}
		out[i] = Vector(t, f.Dim)
	}
	return out, nil
}

// Calls returns how many times Embed was called.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Texts returns every text passed to Embed, in order.
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// Modes returns the mode of every Embed call.
func (f *Fake) Modes() []embedding.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]embedding.Mode(nil), f.modes...)
}

func (f *Fake) fails(text string) bool {
	for _, s := range f.FailOn {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// Vector is the normalised bag-of-words vector Fake produces for text.
func Vector(text string, dim int) []float32 {
	v := make([]float32, dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,:;!?")))
		v[h.Sum32()%uint32(dim)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
