package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rizkyguvio/ThinkTank/internal/graph"
	"github.com/rizkyguvio/ThinkTank/internal/momentum"
	"github.com/rizkyguvio/ThinkTank/internal/store"
)

// Snapshot is a read-only view of the graph, rebuilt on demand from the
// store. Safe to share across concurrent readers; the graph functions
// never mutate it.
type Snapshot struct {
	Ideas      []*store.Idea
	NodeIDs    []string
	Adjacency  graph.Adjacency
	Embeddings map[string][]float32
	Clusters   [][]string
	Centrality map[string]float64
	Core       *graph.Core
}

// SynthesisCandidate pairs two clusters that never touched, with a
// representative idea from each to prompt the connection.
type SynthesisCandidate struct {
	ClusterA        []string
	ClusterB        []string
	RepresentativeA *store.Idea
	RepresentativeB *store.Idea
}

// LoadSnapshot builds a full analytic snapshot from the store.
func (e *Engine) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	ideas, err := e.store.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Ideas:      ideas,
		NodeIDs:    make([]string, 0, len(ideas)),
		Embeddings: make(map[string][]float32),
	}
	for _, idea := range ideas {
		snap.NodeIDs = append(snap.NodeIDs, idea.ID)
		if len(idea.Embedding) > 0 {
			snap.Embeddings[idea.ID] = idea.Embedding
		}
	}

	refs := make([]graph.EdgeRef, 0, len(edges))
	for _, e := range edges {
		refs = append(refs, graph.EdgeRef{SourceID: e.SourceID, TargetID: e.TargetID})
	}
	snap.Adjacency = graph.BuildAdjacency(refs)
	snap.Clusters = graph.FindClusters(snap.NodeIDs, snap.Adjacency)
	snap.Centrality = graph.DegreeCentrality(snap.NodeIDs, snap.Adjacency)
	snap.Core = graph.FindCognitiveCore(snap.Clusters, snap.Embeddings)
	return snap, nil
}

// SynthesisCandidates surfaces "missed connection" prompts: pairs among
// the largest clusters with zero cross-edges. The representative idea
// for each side is its highest-centrality member.
func (e *Engine) SynthesisCandidates(ctx context.Context) ([]SynthesisCandidate, error) {
	snap, err := e.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*store.Idea, len(snap.Ideas))
	for _, idea := range snap.Ideas {
		byID[idea.ID] = idea
	}

	pairs := graph.FindIsolatedPairs(snap.Clusters, snap.Adjacency)
	candidates := make([]SynthesisCandidate, 0, len(pairs))
	for _, pair := range pairs {
		candidates = append(candidates, SynthesisCandidate{
			ClusterA:        pair.A,
			ClusterB:        pair.B,
			RepresentativeA: byID[mostCentral(pair.A, snap.Centrality)],
			RepresentativeB: byID[mostCentral(pair.B, snap.Centrality)],
		})
	}
	return candidates, nil
}

// MomentumSignals runs emerging and fading detection over the current
// corpus and persists the emerging cooldown for every flagged theme.
func (e *Engine) MomentumSignals(ctx context.Context, now time.Time) (emerging, fading []momentum.Signal, err error) {
	themes, err := e.store.ListThemes(ctx)
	if err != nil {
		return nil, nil, err
	}
	ideas, err := e.store.ListIdeas(ctx)
	if err != nil {
		return nil, nil, err
	}

	stats := make([]momentum.ThemeStats, 0, len(themes))
	for _, t := range themes {
		stats = append(stats, momentum.ThemeStats{
			Name:           t.Name,
			TotalCount:     t.TotalCount,
			LastEmergingAt: t.LastEmergingAt,
		})
	}
	refs := make([]momentum.IdeaRef, 0, len(ideas))
	for _, idea := range ideas {
		refs = append(refs, momentum.IdeaRef{
			ID:        idea.ID,
			CreatedAt: idea.CreatedAt,
			Tags:      idea.Tags,
			Embedding: idea.Embedding,
		})
	}

	emerging = momentum.DetectEmerging(stats, refs, len(ideas), now)
	fading = momentum.DetectFading(stats, refs, now)

	for _, signal := range emerging {
		if err := e.store.MarkThemeEmerging(ctx, signal.Theme, now); err != nil {
			return nil, nil, fmt.Errorf("recording cooldown for %q: %w", signal.Theme, err)
		}
	}
	return emerging, fading, nil
}

func mostCentral(ids []string, centrality map[string]float64) string {
	best := ""
	bestScore := -1.0
	for _, id := range ids {
		if score := centrality[id]; score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}
