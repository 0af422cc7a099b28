package similarity

import (
	"math"
	"testing"
)

func TestWeightedJaccardIdentical(t *testing.T) {
	v := map[string]float64{"a": 0.5, "b": 0.3}
	if got := WeightedJaccard(v, v); math.Abs(got-1) > 1e-12 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
}

func TestWeightedJaccardDisjoint(t *testing.T) {
	a := map[string]float64{"x": 0.5}
	b := map[string]float64{"y": 0.5}
	if got := WeightedJaccard(a, b); got != 0 {
		t.Errorf("disjoint vectors = %v, want 0", got)
	}
}

func TestWeightedJaccardPartialOverlap(t *testing.T) {
	a := map[string]float64{"x": 0.4, "y": 0.6}
	b := map[string]float64{"x": 0.2, "z": 0.8}

	// min: x=0.2; max: x=0.4, y=0.6, z=0.8
	want := 0.2 / 1.8
	got := WeightedJaccard(a, b)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}

	// symmetric
	if rev := WeightedJaccard(b, a); math.Abs(rev-got) > 1e-12 {
		t.Errorf("not symmetric: %v vs %v", got, rev)
	}
}

func TestWeightedJaccardEmpty(t *testing.T) {
	if got := WeightedJaccard(nil, nil); got != 0 {
		t.Errorf("nil vectors = %v, want 0", got)
	}
	if got := WeightedJaccard(map[string]float64{}, map[string]float64{"a": 1}); got != 0 {
		t.Errorf("empty vs nonempty = %v, want 0", got)
	}
	// All-zero weights must not divide by zero.
	zero := map[string]float64{"a": 0}
	if got := WeightedJaccard(zero, zero); got != 0 {
		t.Errorf("zero weights = %v, want 0", got)
	}
}

func TestCosineSelf(t *testing.T) {
	v := []float32{0.3, -0.4, 0.5}
	if got := Cosine(v, v); math.Abs(got-1) > 1e-6 {
		t.Errorf("self cosine = %v, want 1", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := Cosine(a, b); math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal cosine = %v, want 0", got)
	}
}

func TestCosineOpposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	if got := Cosine(a, b); math.Abs(got+1) > 1e-6 {
		t.Errorf("opposite cosine = %v, want -1", got)
	}
}

func TestCosineDegenerate(t *testing.T) {
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Errorf("nil input = %v", got)
	}
	if got := Cosine([]float32{1, 2}, []float32{1}); got != 0 {
		t.Errorf("mismatched dims = %v", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero norm = %v", got)
	}
}

func TestCosineLongVector(t *testing.T) {
	// Exercise the unrolled accumulation with a length not divisible by 4.
	a := make([]float32, 7)
	b := make([]float32, 7)
	for i := range a {
		a[i] = float32(i + 1)
		b[i] = float32(i + 1)
	}
	if got := Cosine(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("long self cosine = %v, want 1", got)
	}
}

func TestComputeLexicalEdges(t *testing.T) {
	source := map[string]float64{"coffee": 0.5, "brew": 0.5}
	candidates := []Candidate{
		{ID: "close", Lexical: map[string]float64{"coffee": 0.5, "brew": 0.4}},
		{ID: "far", Lexical: map[string]float64{"tax": 0.9}},
	}

	edges := ComputeLexicalEdges(source, candidates, DefaultLexicalThreshold)
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].TargetID != "close" {
		t.Errorf("edge target = %s", edges[0].TargetID)
	}
	if edges[0].Score < DefaultLexicalThreshold {
		t.Errorf("score %v below threshold", edges[0].Score)
	}
}

func TestComputeSemanticEdges(t *testing.T) {
	source := []float32{1, 0, 0}
	candidates := []Candidate{
		{ID: "same", Embedding: []float32{1, 0.01, 0}},
		{ID: "ortho", Embedding: []float32{0, 1, 0}},
		{ID: "noemb"},
	}

	edges := ComputeSemanticEdges(source, candidates, DefaultSemanticThreshold)
	if len(edges) != 1 || edges[0].TargetID != "same" {
		t.Fatalf("edges = %+v, want single edge to same", edges)
	}

	// A source with no embedding produces nothing.
	if got := ComputeSemanticEdges(nil, candidates, DefaultSemanticThreshold); len(got) != 0 {
		t.Errorf("nil source produced %v", got)
	}
}

func TestMergeMaxKeepsStrongest(t *testing.T) {
	lexical := []ScoredEdge{
		{TargetID: "a", Score: 0.3},
		{TargetID: "b", Score: 0.5},
	}
	semantic := []ScoredEdge{
		{TargetID: "a", Score: 0.9},
		{TargetID: "c", Score: 0.75},
	}

	merged := MergeMax(lexical, semantic)
	if len(merged) != 3 {
		t.Fatalf("got %d edges, want 3", len(merged))
	}

	scores := map[string]float64{}
	for _, e := range merged {
		scores[e.TargetID] = e.Score
	}
	// The stronger signal wins outright; scores are never blended.
	if scores["a"] != 0.9 {
		t.Errorf("a = %v, want 0.9", scores["a"])
	}
	if scores["b"] != 0.5 || scores["c"] != 0.75 {
		t.Errorf("b = %v, c = %v", scores["b"], scores["c"])
	}

	// Best-first ordering.
	if merged[0].TargetID != "a" {
		t.Errorf("first merged edge = %s, want a", merged[0].TargetID)
	}
}
