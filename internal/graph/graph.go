// Package graph holds pure functions over the idea similarity graph.
//
// All functions operate on an adjacency map built by symmetrizing the
// persisted edge list. Nothing here mutates stored state; callers hand
// in read-only snapshots and may do so concurrently.
package graph

import (
	"math"
	"sort"

	"github.com/rizkyguvio/ThinkTank/internal/similarity"
)

// DensitySampleCap bounds how many cluster members contribute to the
// pairwise density computation. Cost control, not a correctness
// boundary.
const DensitySampleCap = 50

// IsolatedPairScanSize is how many of the largest clusters are checked
// for missing cross-links.
const IsolatedPairScanSize = 4

// Adjacency maps an idea id to its neighbor set. Neighbor sets make
// duplicate directed edges collapse naturally at read time.
type Adjacency map[string]map[string]struct{}

// Core describes the cognitive core: the cluster with the highest
// density × ln(size) score.
type Core struct {
	ClusterIDs []string
	Density    float64
	Score      float64
}

// ClusterPair is two clusters with zero edges between them.
type ClusterPair struct {
	A []string
	B []string
}

// EdgeRef is the minimal edge shape needed to build adjacency.
type EdgeRef struct {
	SourceID string
	TargetID string
}

// BuildAdjacency symmetrizes an edge list into an adjacency map.
// Self edges are dropped.
func BuildAdjacency(edges []EdgeRef) Adjacency {
	adj := make(Adjacency)
	for _, e := range edges {
		if e.SourceID == "" || e.TargetID == "" || e.SourceID == e.TargetID {
			continue
		}
		addNeighbor(adj, e.SourceID, e.TargetID)
		addNeighbor(adj, e.TargetID, e.SourceID)
	}
	return adj
}

func addNeighbor(adj Adjacency, from, to string) {
	if _, ok := adj[from]; !ok {
		adj[from] = make(map[string]struct{})
	}
	adj[from][to] = struct{}{}
}

// FindClusters returns the connected components of size >= 2, via
// breadth-first traversal from each unvisited node. Component membership
// is deterministic given the adjacency; only the slot a component
// occupies in the result depends on nodeIDs order. Members within a
// cluster are sorted for stable downstream consumption.
func FindClusters(nodeIDs []string, adj Adjacency) [][]string {
	visited := make(map[string]struct{}, len(nodeIDs))
	var clusters [][]string

	for _, start := range nodeIDs {
		if _, seen := visited[start]; seen {
			continue
		}
		visited[start] = struct{}{}

		component := []string{start}
		queue := []string{start}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			for neighbor := range adj[node] {
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				component = append(component, neighbor)
				queue = append(queue, neighbor)
			}
		}

		// A cluster requires at least two members.
		if len(component) >= 2 {
			sort.Strings(component)
			clusters = append(clusters, component)
		}
	}
	return clusters
}

// SemanticDensity returns the mean pairwise cosine similarity over
// cluster members that have an embedding, sampling at most
// DensitySampleCap members in encounter order. Fewer than two embedded
// members scores 0.
func SemanticDensity(clusterIDs []string, embeddings map[string][]float32) float64 {
	sample := make([][]float32, 0, DensitySampleCap)
	for _, id := range clusterIDs {
		emb := embeddings[id]
		if len(emb) == 0 {
			continue
		}
		sample = append(sample, emb)
		if len(sample) == DensitySampleCap {
			break
		}
	}
	if len(sample) < 2 {
		return 0
	}

	var sum float64
	var pairs int
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			sum += similarity.Cosine(sample[i], sample[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// FindCognitiveCore picks the cluster maximizing density × ln(size).
// Returns nil when there are no clusters. The first cluster reaching the
// maximal score wins, so ties are stable.
func FindCognitiveCore(clusters [][]string, embeddings map[string][]float32) *Core {
	var core *Core
	for _, cluster := range clusters {
		density := SemanticDensity(cluster, embeddings)
		score := density * math.Log(float64(len(cluster)))
		if core == nil || score > core.Score {
			core = &Core{ClusterIDs: cluster, Density: density, Score: score}
		}
	}
	return core
}

// DegreeCentrality returns degree/(N-1) per node. Empty map when N <= 1.
func DegreeCentrality(nodeIDs []string, adj Adjacency) map[string]float64 {
	centrality := make(map[string]float64)
	n := len(nodeIDs)
	if n <= 1 {
		return centrality
	}

	denom := float64(n - 1)
	for _, id := range nodeIDs {
		centrality[id] = float64(len(adj[id])) / denom
	}
	return centrality
}

// FindIsolatedPairs reports every pair among the largest
// IsolatedPairScanSize clusters with zero cross-edges. These are the
// "missed connection" prompts: groups of related thought that never
// touched.
func FindIsolatedPairs(clusters [][]string, adj Adjacency) []ClusterPair {
	ranked := make([][]string, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i]) > len(ranked[j])
	})
	if len(ranked) > IsolatedPairScanSize {
		ranked = ranked[:IsolatedPairScanSize]
	}

	var pairs []ClusterPair
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if !clustersConnected(ranked[i], ranked[j], adj) {
				pairs = append(pairs, ClusterPair{A: ranked[i], B: ranked[j]})
			}
		}
	}
	return pairs
}

func clustersConnected(a, b []string, adj Adjacency) bool {
	members := make(map[string]struct{}, len(b))
	for _, id := range b {
		members[id] = struct{}{}
	}
	for _, id := range a {
		for neighbor := range adj[id] {
			if _, ok := members[neighbor]; ok {
				return true
			}
		}
	}
	return false
}
