package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithScope(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{JSON: true, Output: &buf}).With(Scope("search"))
	log.Info("retrieved", "blocks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search", entry["scope"])
	assert.Equal(t, "retrieved", entry["msg"])
	assert.EqualValues(t, 3, entry["blocks"])
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf}).Debug("hidden")
	assert.Empty(t, buf.String())

	New(Options{Output: &buf, Verbose: true}).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 5))
	assert.Equal(t, "ab...", Preview("abc", 2))
	assert.Equal(t, "Rp...", Preview("Rp 1.000", 2))
}
