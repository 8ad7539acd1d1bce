package tokenizer

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktoken_RoundTrip(t *testing.T) {
	tok, err := NewTiktoken("")
	require.NoError(t, err)

	text := "Sejarah Sekolah: SMK Medikacom berdiri pada tahun 1990 di Bandung."
	ids := tok.Encode(text)
	require.NotEmpty(t, ids)
	assert.Equal(t, text, tok.Decode(ids))
}

func TestTiktoken_Deterministic(t *testing.T) {
	tok, err := NewTiktoken(DefaultEncoding)
	require.NoError(t, err)
	assert.Equal(t, tok.Encode("biaya seragam"), tok.Encode("biaya seragam"))
}

func TestTiktoken_DecodeIsLossless(t *testing.T) {
	tok, err := NewTiktoken(DefaultEncoding)
	require.NoError(t, err)

	text := "Biaya 💰 pendidikan 学校 tahun ajaran"
	ids := tok.Encode(text)
	var joined string
	split := false
	for _, id := range ids {
		part := tok.Decode([]int{id})
		if !utf8.ValidString(part) {
			split = true
		}
		joined += part
	}
	// Some characters span several tokens, and concatenating per-token bytes
	// still restores the text.
	assert.True(t, split)
	assert.Equal(t, text, joined)
}

func TestNewTiktoken_UnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("no_such_encoding")
	assert.Error(t, err)
}
