// Package embedding turns text into vectors with the asymmetric query/passage
// prefixes the e5 model family expects.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable means the provider could not embed anything at all.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Mode selects the input prefix.
type Mode int

const (
	// ModePassage is used for stored chunks.
	ModePassage Mode = iota
	// ModeQuery is used for user questions.
	ModeQuery
)

// Prefix returns the text prepended to every input in this mode.
func (m Mode) Prefix() string {
	if m == ModeQuery {
		return "query: "
	}
	return "passage: "
}

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "passage"
}

// Provider embeds texts. The result has one entry per input; an entry is nil
// when that single text failed.
type Provider interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimension() int
}

// EmbedOne embeds a single text and reports a nil vector as ErrUnavailable.
func EmbedOne(ctx context.Context, p Provider, text string, mode Mode) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, ErrUnavailable
	}
	return vecs[0], nil
}
