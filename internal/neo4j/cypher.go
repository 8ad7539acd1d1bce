package neo4j

import (
	"fmt"

	"medikacom/kgrag/internal/graph"
)

// MaxChainDepth bounds variable-length NEXT_CHUNK patterns.
const MaxChainDepth = 10_000

// Identifiers (labels, relationship types, property and index names) are
// validated enums and are placed in backticks. Every value travels as a
// query parameter.

func upsertNodeQuery(label graph.Label, keyProperty string) (string, error) {
	if err := label.Validate(); err != nil {
		return "", err
	}
	if err := graph.ValidateProperty(keyProperty); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MERGE (n:%s {%s: $key})
		ON CREATE SET n += $props, n.created_at = timestamp(), n.updated_at = timestamp()
		ON MATCH SET n += $props, n.updated_at = timestamp()
		RETURN elementId(n) AS id`, quote(string(label)), quote(keyProperty)), nil
}

func findNodeQuery(label graph.Label, keyProperty string) (string, error) {
	if err := label.Validate(); err != nil {
		return "", err
	}
	if err := graph.ValidateProperty(keyProperty); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MATCH (n:%s {%s: $key})
		RETURN elementId(n) AS id, properties(n) AS props,
		       coalesce(n.created_at, 0) AS created_at, coalesce(n.updated_at, 0) AS updated_at
		LIMIT 1`, quote(string(label)), quote(keyProperty)), nil
}

func createNodeQuery(label graph.Label) (string, error) {
	if err := label.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		CREATE (c:%s)
		SET c = $props, c.created_at = timestamp(), c.updated_at = timestamp()
		RETURN elementId(c) AS id`, quote(string(label))), nil
}

func mergeRelationshipQuery(rel graph.RelType) (string, error) {
	if err := rel.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MATCH (a) WHERE elementId(a) = $from
		MATCH (b) WHERE elementId(b) = $to
		MERGE (a)-[r:%s]->(b)
		ON CREATE SET r.created_at = timestamp()
		RETURN count(r) AS merged`, quote(string(rel))), nil
}

func chainQuery(anchor graph.RelType) (string, error) {
	if err := anchor.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MATCH (p)-[:%s]->(head:%s)
		WHERE elementId(p) = $parent
		MATCH path = (head)-[:%s*0..%d]->(c:%s)
		WITH c, min(length(path)) AS depth
		RETURN elementId(c) AS id, coalesce(c.text, '') AS text,
		       coalesce(c.original_category, '') AS category,
		       coalesce(c.chunk_sequence, -1) AS sequence, depth
		ORDER BY depth, id`,
		quote(string(anchor)), chunkLabel(), nextChunk(), MaxChainDepth, chunkLabel()), nil
}

func sequenceQuery() string {
	return fmt.Sprintf(`
		MATCH (head:%s)
		WHERE elementId(head) = $head AND head.original_category = $category
		MATCH path = (head)-[:%s*0..%d]->(c:%s)
		WHERE all(n IN nodes(path) WHERE n.original_category = $category)
		WITH c, min(length(path)) AS depth
		RETURN elementId(c) AS id, coalesce(c.text, '') AS text,
		       coalesce(c.original_category, '') AS category,
		       coalesce(c.chunk_sequence, -1) AS sequence, depth
		ORDER BY depth, id`,
		chunkLabel(), nextChunk(), MaxChainDepth, chunkLabel())
}

// sequenceHeadQuery only accepts a head that some non-chunk node anchors, so
// the head always belongs to the same parent as the hit.
func sequenceHeadQuery() string {
	return fmt.Sprintf(`
		MATCH (hit:%s)
		WHERE elementId(hit) = $chunk AND hit.original_category = $category
		MATCH path = (head:%s {chunk_sequence: 1})-[:%s*0..%d]->(hit)
		WHERE all(n IN nodes(path) WHERE n.original_category = $category)
		  AND EXISTS {
		    MATCH (p)-[r]->(head)
		    WHERE type(r) <> '%s' AND NOT p:%s
		  }
		RETURN elementId(head) AS id
		ORDER BY length(path)
		LIMIT 1`,
		chunkLabel(), chunkLabel(), nextChunk(), MaxChainDepth, string(graph.RelNextChunk), chunkLabel())
}

const vectorSearchQuery = `
	CALL db.index.vector.queryNodes($index, $k, $vector)
	YIELD node, score
	RETURN elementId(node) AS id, score,
	       coalesce(node.text, '') AS text,
	       coalesce(node.original_category, '') AS category,
	       coalesce(node.chunk_sequence, -1) AS sequence
	ORDER BY score DESC`

const deleteSubgraphQuery = `
	MATCH (n) WHERE elementId(n) IN $ids
	DETACH DELETE n`

// createVectorIndexQuery places dimensions and similarity as literals since
// index OPTIONS do not take parameters; both come from a validated VectorIndex.
func createVectorIndexQuery(idx graph.VectorIndex) (string, error) {
	if err := idx.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		CREATE VECTOR INDEX %s IF NOT EXISTS
		FOR (c:%s) ON (c.%s)
		OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: '%s'}}`,
		quote(idx.Name), quote(string(idx.Label)), quote(idx.Property), idx.Dimensions, string(idx.Similarity)), nil
}

const showVectorIndexQuery = `
	SHOW VECTOR INDEXES
	YIELD name, labelsOrTypes, properties, options
	WHERE name = $name
	RETURN labelsOrTypes, properties, options`

const snapshotNodesQuery = `
	MATCH (n)
	RETURN elementId(n) AS id, labels(n)[0] AS label,
	       toString(coalesce(n.nama, n.nama_kategori, '')) AS key,
	       coalesce(n.original_category, '') AS category,
	       coalesce(n.chunk_sequence, -1) AS sequence,
	       coalesce(n.created_at, 0) AS created_at,
	       coalesce(n.updated_at, 0) AS updated_at`

const snapshotEdgesQuery = `
	MATCH (a)-[r]->(b)
	RETURN elementId(r) AS id, elementId(a) AS source, elementId(b) AS target,
	       type(r) AS type, coalesce(r.created_at, 0) AS created_at`

func quote(ident string) string { return "`" + ident + "`" }

func chunkLabel() string { return quote(string(graph.LabelChunk)) }

func nextChunk() string { return quote(string(graph.RelNextChunk)) }
