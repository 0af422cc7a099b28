// Package similarity scores pairs of ideas.
//
// Two metrics: weighted Jaccard over sparse lexical vectors and cosine
// over dense embeddings. Degenerate inputs (empty maps, nil vectors,
// mismatched lengths, zero denominators) score 0 — numeric stability is
// policy here, not an error path.
package similarity

import (
	"math"
	"sort"
)

// Default edge thresholds. The lexical default suits a mature corpus; a
// sparse young corpus needs something closer to 0.12–0.15 before any
// edges form.
const (
	DefaultLexicalThreshold  = 0.25
	DefaultSemanticThreshold = 0.72
)

// Candidate is one pool member a new idea is scored against.
type Candidate struct {
	ID        string
	Lexical   map[string]float64
	Embedding []float32
}

// ScoredEdge is a candidate that met a similarity threshold.
type ScoredEdge struct {
	TargetID string
	Score    float64
}

// WeightedJaccard computes Σ min(a[k],b[k]) / Σ max(a[k],b[k]) over the
// union of keys. Result is in [0,1]; 0 when the union is empty or the
// denominator is 0.
func WeightedJaccard(a, b map[string]float64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	var num, den float64
	for k, av := range a {
		bv := b[k]
		num += math.Min(av, bv)
		den += math.Max(av, bv)
	}
	for k, bv := range b {
		if _, seen := a[k]; seen {
			continue
		}
		num += math.Min(0, bv)
		den += math.Max(0, bv)
	}

	if den == 0 {
		return 0
	}
	return num / den
}

// Cosine computes cosine similarity between two dense vectors.
// Returns 0 for nil, empty, or length-mismatched inputs.
//
// The dot product and magnitudes are accumulated in a single unrolled
// pass over four independent lanes, which the compiler vectorizes well —
// this runs hundreds of times per capture at embedding dimensionality.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot0, dot1, dot2, dot3 float32
	var na0, na1, na2, na3 float32
	var nb0, nb1, nb2, nb3 float32

	i := 0
	for ; i+4 <= len(a); i += 4 {
		dot0 += a[i] * b[i]
		dot1 += a[i+1] * b[i+1]
		dot2 += a[i+2] * b[i+2]
		dot3 += a[i+3] * b[i+3]
		na0 += a[i] * a[i]
		na1 += a[i+1] * a[i+1]
		na2 += a[i+2] * a[i+2]
		na3 += a[i+3] * a[i+3]
		nb0 += b[i] * b[i]
		nb1 += b[i+1] * b[i+1]
		nb2 += b[i+2] * b[i+2]
		nb3 += b[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		dot0 += a[i] * b[i]
		na0 += a[i] * a[i]
		nb0 += b[i] * b[i]
	}

	dot := float64(dot0 + dot1 + dot2 + dot3)
	normA := math.Sqrt(float64(na0 + na1 + na2 + na3))
	normB := math.Sqrt(float64(nb0 + nb1 + nb2 + nb3))

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// ComputeLexicalEdges scores newVector against every candidate's lexical
// vector and returns those at or above threshold, best first.
func ComputeLexicalEdges(newVector map[string]float64, candidates []Candidate, threshold float64) []ScoredEdge {
	if len(newVector) == 0 {
		return nil
	}

	var edges []ScoredEdge
	for _, c := range candidates {
		score := WeightedJaccard(newVector, c.Lexical)
		if score >= threshold {
			edges = append(edges, ScoredEdge{TargetID: c.ID, Score: score})
		}
	}
	sortEdges(edges)
	return edges
}

// ComputeSemanticEdges scores newEmbedding against every candidate's
// embedding and returns those at or above threshold, best first.
// Candidates without an embedding contribute nothing.
func ComputeSemanticEdges(newEmbedding []float32, candidates []Candidate, threshold float64) []ScoredEdge {
	if len(newEmbedding) == 0 {
		return nil
	}

	var edges []ScoredEdge
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		score := Cosine(newEmbedding, c.Embedding)
		if score >= threshold {
			edges = append(edges, ScoredEdge{TargetID: c.ID, Score: score})
		}
	}
	sortEdges(edges)
	return edges
}

// MergeMax combines lexical and semantic edge lists for the same source,
// keeping the maximum score for any target scored by both paths. Max, not
// a blend: a clearly related pair shouldn't be diluted by a weak score
// from the other metric.
func MergeMax(lexical, semantic []ScoredEdge) []ScoredEdge {
	best := make(map[string]float64, len(lexical)+len(semantic))
	for _, e := range lexical {
		if e.Score > best[e.TargetID] {
			best[e.TargetID] = e.Score
		}
	}
	for _, e := range semantic {
		if e.Score > best[e.TargetID] {
			best[e.TargetID] = e.Score
		}
	}

	merged := make([]ScoredEdge, 0, len(best))
	for id, score := range best {
		merged = append(merged, ScoredEdge{TargetID: id, Score: score})
	}
	sortEdges(merged)
	return merged
}

func sortEdges(edges []ScoredEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Score != edges[j].Score {
			return edges[i].Score > edges[j].Score
		}
		return edges[i].TargetID < edges[j].TargetID
	})
}
