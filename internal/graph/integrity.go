package graph

import (
	"fmt"
	"math"
	"sort"
)

// Chain problem kinds reported by AnalyzeChains.
const (
	ProblemBadStart       = "bad_start"
	ProblemSequenceGap    = "sequence_gap"
	ProblemBranch         = "branch"
	ProblemCycle          = "cycle"
	ProblemMixedCategory  = "mixed_category"
	ProblemMultipleAnchor = "multiple_anchors"
)

// ChainProblem is one defect found while walking a chain.
type ChainProblem struct {
	Kind    string `json:"kind"`
	ChunkID string `json:"chunk_id"`
	Detail  string `json:"detail"`
}

// ChainInfo describes one anchored chunk chain.
type ChainInfo struct {
	ParentID    string         `json:"parent_id"`
	ParentLabel Label          `json:"parent_label"`
	ParentKey   string         `json:"parent_key"`
	Anchor      RelType        `json:"anchor"`
	HeadID      string         `json:"head_id"`
	Category    string         `json:"category"`
	Length      int            `json:"length"`
	Stale       bool           `json:"stale"`
	DriftDays   int64          `json:"drift_days,omitempty"`
	Problems    []ChainProblem `json:"problems,omitempty"`
}

// Healthy reports whether the chain walked cleanly.
func (c *ChainInfo) Healthy() bool { return len(c.Problems) == 0 }

// HealthBreakdown shows the sub-scores of the health formula.
type HealthBreakdown struct {
	Reachability float64 `json:"reachability"`
	Integrity    float64 `json:"integrity"`
	Freshness    float64 `json:"freshness"`
}

// IntegrityReport is the result of AnalyzeChains.
type IntegrityReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	ConceptCount    int             `json:"concept_count"`
	ChunkCount      int             `json:"chunk_count"`
	ChainCount      int             `json:"chain_count"`
	BrokenCount     int             `json:"broken_count"`
	StaleCount      int             `json:"stale_count"`
	OrphanCount     int             `json:"orphan_count"`
	OrphanIDs       []string        `json:"orphan_ids,omitempty"`
	FragmentCount   int             `json:"fragment_count"`
	Chains          []ChainInfo     `json:"chains"`
}

// AnalyzerConfig holds analysis parameters.
type AnalyzerConfig struct {
	// StaleDays is how long a parent may have been updated after its chain
	// was written before the chain counts as stale.
	StaleDays int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{StaleDays: 30}
}

const dayMs = 86_400_000

// AnalyzeChains walks every anchored chunk chain in snap and reports
// structural defects, orphaned chunks and a composite health score.
func AnalyzeChains(snap *Snapshot, config *AnalyzerConfig) *IntegrityReport {
	if config == nil {
		config = DefaultConfig()
	}
	report := &IntegrityReport{}
	reached := make(map[string]bool)

	for _, id := range snap.NodeIDs() {
		if !snap.Nodes[id].IsChunk() {
			report.ConceptCount++
		}
	}

	for _, headID := range snap.ChunkIDs() {
		anchors := snap.Anchors[headID]
		if len(anchors) == 0 {
			continue
		}
		sort.Slice(anchors, func(i, j int) bool { return anchors[i].Source < anchors[j].Source })
		for _, anchor := range anchors {
			chain := walkChain(snap, anchor, reached)
			if len(anchors) > 1 {
				chain.Problems = append(chain.Problems, ChainProblem{
					Kind:    ProblemMultipleAnchor,
					ChunkID: headID,
					Detail:  fmt.Sprintf("head anchored by %d conceptual nodes", len(anchors)),
				})
			}
			markStale(snap, &chain, config.StaleDays)
			if !chain.Healthy() {
				report.BrokenCount++
			}
			if chain.Stale {
				report.StaleCount++
			}
			report.Chains = append(report.Chains, chain)
		}
	}

	chunkIDs := snap.ChunkIDs()
	report.ChunkCount = len(chunkIDs)
	report.ChainCount = len(report.Chains)
	for _, id := range chunkIDs {
		if !reached[id] {
			report.OrphanIDs = append(report.OrphanIDs, id)
		}
	}
	report.OrphanCount = len(report.OrphanIDs)
	report.FragmentCount = countOrphanFragments(snap, chunkIDs, reached)

	report.HealthBreakdown, report.HealthScore = score(report)
	return report
}

// walkChain follows NEXT_CHUNK from the anchored head, recording each defect.
func walkChain(snap *Snapshot, anchor EdgeInfo, reached map[string]bool) ChainInfo {
	parent := snap.Nodes[anchor.Source]
	head := snap.Nodes[anchor.Target]
	chain := ChainInfo{
		ParentID:    parent.ID,
		ParentLabel: parent.Label,
		ParentKey:   parent.KeyValue,
		Anchor:      anchor.RelType,
		HeadID:      head.ID,
		Category:    head.Category,
	}
	if head.Sequence != 1 {
		chain.Problems = append(chain.Problems, ChainProblem{
			Kind:    ProblemBadStart,
			ChunkID: head.ID,
			Detail:  fmt.Sprintf("head has chunk_sequence %d", head.Sequence),
		})
	}

	seen := make(map[string]bool)
	current := head.ID
	for position := 1; ; position++ {
		if seen[current] {
			chain.Problems = append(chain.Problems, ChainProblem{
				Kind:    ProblemCycle,
				ChunkID: current,
				Detail:  fmt.Sprintf("chunk revisited at position %d", position),
			})
			break
		}
		seen[current] = true
		reached[current] = true
		node := snap.Nodes[current]
		chain.Length++

		if position > 1 && node.Sequence != position {
			chain.Problems = append(chain.Problems, ChainProblem{
				Kind:    ProblemSequenceGap,
				ChunkID: current,
				Detail:  fmt.Sprintf("expected chunk_sequence %d, found %d", position, node.Sequence),
			})
		}
		if node.Category != chain.Category {
			chain.Problems = append(chain.Problems, ChainProblem{
				Kind:    ProblemMixedCategory,
				ChunkID: current,
				Detail:  fmt.Sprintf("category %q differs from head %q", node.Category, chain.Category),
			})
		}

		next := snap.Next[current]
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			sorted := append([]string(nil), next...)
			sort.Strings(sorted)
			chain.Problems = append(chain.Problems, ChainProblem{
				Kind:    ProblemBranch,
				ChunkID: current,
				Detail:  fmt.Sprintf("%d outgoing NEXT_CHUNK edges", len(next)),
			})
			// Everything behind the branch is still part of the chain.
			for _, id := range sorted[1:] {
				markReachable(snap, id, reached)
			}
			next = sorted
		}
		current = next[0]
	}
	return chain
}

func markReachable(snap *Snapshot, start string, reached map[string]bool) {
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		stack = append(stack, snap.Next[id]...)
	}
}

// markStale flags a chain whose parent was updated well after the chain head
// was written, i.e. the parent text moved on without a rebuild.
func markStale(snap *Snapshot, chain *ChainInfo, staleDays int64) {
	parent := snap.Nodes[chain.ParentID]
	head := snap.Nodes[chain.HeadID]
	drift := parent.UpdatedAt - head.CreatedAt
	if drift > staleDays*dayMs {
		chain.Stale = true
		chain.DriftDays = drift / dayMs
	}
}

// countOrphanFragments groups unreached chunks into NEXT_CHUNK-connected fragments.
func countOrphanFragments(snap *Snapshot, chunkIDs []string, reached map[string]bool) int {
	var orphans []string
	for _, id := range chunkIDs {
		if !reached[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return 0
	}
	uf := NewUnionFind(orphans)
	for _, id := range orphans {
		for _, next := range snap.Next[id] {
			if !reached[next] {
				uf.Union(id, next)
			}
		}
	}
	return len(uf.Components())
}

func score(r *IntegrityReport) (HealthBreakdown, float64) {
	b := HealthBreakdown{Reachability: 1, Integrity: 1, Freshness: 1}
	if r.ChunkCount > 0 {
		b.Reachability = clamp(1.0-math.Min(float64(r.OrphanCount)/float64(r.ChunkCount), 0.2)*5.0, 0, 1)
	}
	if r.ChainCount > 0 {
		b.Integrity = clamp(1.0-float64(r.BrokenCount)/float64(r.ChainCount), 0, 1)
		b.Freshness = clamp(1.0-math.Min(float64(r.StaleCount)/float64(r.ChainCount), 0.5)*2.0, 0, 1)
	}
	return b, 0.40*b.Reachability + 0.40*b.Integrity + 0.20*b.Freshness
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
