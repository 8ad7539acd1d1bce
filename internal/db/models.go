package db

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"medikacom/kgrag/internal/graph"
)

// Stats summarises what the store holds.
type Stats struct {
	ConceptNodes   int `json:"concept_nodes"`
	ChunkNodes     int `json:"chunk_nodes"`
	EmbeddedChunks int `json:"embedded_chunks"`
	Edges          int `json:"edges"`
	VectorIndexes  int `json:"vector_indexes"`
}

// embeddingToBytes encodes v as little-endian float32s.
func embeddingToBytes(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToEmbedding converts a little-endian byte slice to []float32.
// Each 4 bytes = one LE float32. Short trailing chunk → 0.0.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

func encodeProperties(p graph.Properties) (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding properties: %w", err)
	}
	return string(data), nil
}

func decodeProperties(s string) (graph.Properties, error) {
	p := graph.Properties{}
	if s == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	return p, nil
}

// scanChunk scans id, text, category, sequence, depth.
func scanChunk(scanner interface{ Scan(dest ...any) error }) (graph.Chunk, error) {
	var c graph.Chunk
	err := scanner.Scan(&c.ID, &c.Text, &c.Category, &c.Sequence, &c.Depth)
	return c, err
}
