package graph

import "sort"

// NodeInfo is a lightweight node representation decoupled from store types.
type NodeInfo struct {
	ID        string
	Label     Label
	KeyValue  string
	Category  string // chunks only
	Sequence  int    // chunks only
	CreatedAt int64
	UpdatedAt int64
}

// IsChunk reports whether the node is a chunk.
func (n *NodeInfo) IsChunk() bool { return n.Label == LabelChunk }

// EdgeInfo is a lightweight edge representation.
type EdgeInfo struct {
	ID        string
	Source    string
	Target    string
	RelType   RelType
	CreatedAt int64
}

// Snapshot holds the graph with precomputed NEXT_CHUNK adjacency and the
// anchor edges pointing into chunks.
type Snapshot struct {
	Nodes   map[string]*NodeInfo
	Edges   []EdgeInfo
	Next    map[string][]string   // chunk -> successors
	Prev    map[string][]string   // chunk -> predecessors
	Anchors map[string][]EdgeInfo // chunk -> anchor edges from conceptual nodes
}

// NewSnapshot builds a Snapshot from raw nodes and edges. Edges whose
// endpoints are missing are dropped.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *Snapshot {
	nodeMap := make(map[string]*NodeInfo, len(nodes))
	for _, n := range nodes {
		nodeMap[n.ID] = n
	}

	snap := &Snapshot{
		Nodes:   nodeMap,
		Next:    make(map[string][]string),
		Prev:    make(map[string][]string),
		Anchors: make(map[string][]EdgeInfo),
	}

	for _, e := range edges {
		src, ok := nodeMap[e.Source]
		if !ok {
			continue
		}
		dst, ok := nodeMap[e.Target]
		if !ok {
			continue
		}
		snap.Edges = append(snap.Edges, e)
		switch {
		case e.RelType == RelNextChunk && src.IsChunk() && dst.IsChunk():
			snap.Next[e.Source] = append(snap.Next[e.Source], e.Target)
			snap.Prev[e.Target] = append(snap.Prev[e.Target], e.Source)
		case !src.IsChunk() && dst.IsChunk():
			snap.Anchors[e.Target] = append(snap.Anchors[e.Target], e)
		}
	}
	return snap
}

// NodeIDs returns all node IDs, sorted.
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChunkIDs returns the IDs of chunk nodes, sorted.
func (s *Snapshot) ChunkIDs() []string {
	var ids []string
	for id, n := range s.Nodes {
		if n.IsChunk() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
