// Package graph defines the property-graph model shared by the chunk-sequence
// writer, the search engine and the store adapters: node labels, relationship
// kinds, chunk records and the capability interfaces a store must offer.
package graph

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// identPattern restricts labels and relationship types to identifiers that are
// safe to place in a query as names. Values always travel as parameters.
var (
	identPattern     = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	indexNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	propertyPattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Label is a node label such as "Sekolah" or "Chunk".
type Label string

// Node labels written by the ingestion pipeline.
const (
	LabelChunk             Label = "Chunk"
	LabelSekolah           Label = "Sekolah"
	LabelSejarah           Label = "Sejarah"
	LabelVisiMisi          Label = "VisiMisi"
	LabelPengetahuanUmum   Label = "PengetahuanUmum"
	LabelBiayaPendidikan   Label = "BiayaPendidikan"
	LabelBiayaSeragam      Label = "BiayaSeragam"
	LabelKelasIndustri     Label = "KelasIndustri"
	LabelTenagaPendidik    Label = "TenagaPendidik"
	LabelEkstrakurikuler   Label = "Ekstrakurikuler"
	LabelInformasiTambahan Label = "InformasiTambahan"
	LabelPanduanPPDB       Label = "PanduanPPDB"
)

// Validate reports whether the label can be used as a query identifier.
func (l Label) Validate() error {
	if !identPattern.MatchString(string(l)) {
		return fmt.Errorf("%w: label %q", ErrInvalidIdentifier, string(l))
	}
	return nil
}

// RelType is a relationship type.
type RelType string

// Relationship kinds. The HAS_*_CHUNK kinds anchor a conceptual node to the
// head of a chunk sequence; NextChunk links consecutive chunks.
const (
	RelHasHistory          RelType = "HAS_HISTORY"
	RelHasVisiMisi         RelType = "HAS_VISI_MISI"
	RelHasGeneralKnowledge RelType = "HAS_GENERAL_KNOWLEDGE"
	RelHasTuitionInfo      RelType = "HAS_TUITION_INFO"
	RelHasUniformCostInfo  RelType = "HAS_UNIFORM_COST_INFO"
	RelHasIndustryClass    RelType = "HAS_INDUSTRY_CLASS"
	RelHasStaff            RelType = "HAS_STAFF"
	RelHasExtracurriculars RelType = "HAS_EXTRACURRICULARS"
	RelHasAdditionalInfo   RelType = "HAS_ADDITIONAL_INFO"
	RelHasPPDBGuide        RelType = "HAS_PPDB_GUIDE"

	RelHasContentChunk     RelType = "HAS_CONTENT_CHUNK"
	RelHasDescriptionChunk RelType = "HAS_DESCRIPTION_CHUNK"
	RelHasVisiChunk        RelType = "HAS_VISI_CHUNK"
	RelHasMisiChunk        RelType = "HAS_MISI_CHUNK"

	RelNextChunk RelType = "NEXT_CHUNK"
)

// Validate reports whether the relationship type can be used as a query identifier.
func (r RelType) Validate() error {
	if !identPattern.MatchString(string(r)) {
		return fmt.Errorf("%w: relationship %q", ErrInvalidIdentifier, string(r))
	}
	return nil
}

// IsAnchor reports whether r links a conceptual node to a sequence head.
func (r RelType) IsAnchor() bool {
	s := string(r)
	return r != RelNextChunk && strings.HasPrefix(s, "HAS_") && strings.HasSuffix(s, "_CHUNK")
}

// ChunkRelType derives the anchor relationship for a dynamically named section,
// e.g. "jam operasional" -> HAS_JAMOPERASIONAL_CHUNK. Only letters and digits
// of name survive.
func ChunkRelType(name string) (RelType, error) {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no usable characters in %q", ErrInvalidIdentifier, name)
	}
	rel := RelType("HAS_" + b.String() + "_CHUNK")
	return rel, rel.Validate()
}

// ValidateProperty reports whether name can be used as a property key in a query.
func ValidateProperty(name string) error {
	if !propertyPattern.MatchString(name) {
		return fmt.Errorf("%w: property %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Properties is a bag of scalar node properties.
type Properties map[string]any

// Clone returns a shallow copy, never nil.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Node is a conceptual node.
type Node struct {
	ID          string     `json:"id"`
	Label       Label      `json:"label"`
	KeyProperty string     `json:"key_property"`
	KeyValue    string     `json:"key_value"`
	Properties  Properties `json:"properties"`
	CreatedAt   int64      `json:"created_at"` // Unix millis
	UpdatedAt   int64      `json:"updated_at"` // Unix millis
}

// Chunk is one stored slice of a logical document.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"original_category"`
	Sequence int    `json:"chunk_sequence"`
	// Depth is the traversal distance from the sequence head (or anchor) when
	// the chunk was returned by a chain traversal.
	Depth int `json:"depth"`
}

// NewChunk carries everything needed to create a chunk node.
type NewChunk struct {
	Text      string
	Embedding []float32
	Category  string
	Sequence  int
}

// Properties renders the chunk as node properties, using embeddingProperty
// as the name of the vector property.
func (c NewChunk) Properties(embeddingProperty string) Properties {
	return Properties{
		"text":              c.Text,
		embeddingProperty:   c.Embedding,
		"original_category": c.Category,
		"chunk_sequence":    c.Sequence,
	}
}

// NoSequence marks a vector hit whose node carries no chunk_sequence.
const NoSequence = -1

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	ID       string
	Score    float64
	Text     string
	Category string
	Sequence int
}

// Similarity is the vector index distance function.
type Similarity string

const (
	SimilarityCosine    Similarity = "cosine"
	SimilarityEuclidean Similarity = "euclidean"
)

// VectorIndex describes an approximate nearest-neighbour index over a node property.
type VectorIndex struct {
	Name       string
	Label      Label
	Property   string
	Dimensions int
	Similarity Similarity
}

// Validate checks the index definition before it is provisioned.
func (v VectorIndex) Validate() error {
	if !indexNamePattern.MatchString(v.Name) {
		return fmt.Errorf("%w: index name %q", ErrInvalidIdentifier, v.Name)
	}
	if !propertyPattern.MatchString(v.Property) {
		return fmt.Errorf("%w: index property %q", ErrInvalidIdentifier, v.Property)
	}
	if err := v.Label.Validate(); err != nil {
		return err
	}
	if v.Dimensions <= 0 {
		return fmt.Errorf("vector index %s: dimensions must be positive, got %d", v.Name, v.Dimensions)
	}
	switch v.Similarity {
	case SimilarityCosine, SimilarityEuclidean:
	default:
		return fmt.Errorf("vector index %s: unsupported similarity %q", v.Name, v.Similarity)
	}
	return nil
}
