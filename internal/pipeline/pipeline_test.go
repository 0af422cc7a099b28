package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rizkyguvio/ThinkTank/internal/intent"
	"github.com/rizkyguvio/ThinkTank/internal/nlp"
	"github.com/rizkyguvio/ThinkTank/internal/store"
)

// stubEmbedder returns canned vectors keyed by substring match, so tests
// can steer semantic similarity without a model.
type stubEmbedder struct {
	byPhrase map[string][]float32
	fallback []float32
	err      error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	for phrase, vec := range s.byPhrase {
		if strings.Contains(strings.ToLower(text), phrase) {
			return vec, nil
		}
	}
	return s.fallback, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func newTestEngine(t *testing.T, embedder nlp.Embedder, intents *intent.Classifier) (*Engine, store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewEngine(st, nlp.NewRuleTokenizer(), embedder, intents, DefaultOptions()), st
}

func TestCapturePersistsRawIdea(t *testing.T) {
	engine, st := newTestEngine(t, nil, nil)
	ctx := context.Background()

	idea, err := engine.Capture(ctx, "  remember to water the plants  ")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if idea.ID == "" {
		t.Error("no id assigned")
	}
	if idea.Content != "remember to water the plants" {
		t.Errorf("content not trimmed: %q", idea.Content)
	}

	stored, err := st.GetIdea(ctx, idea.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("idea not persisted")
	}
	if stored.Status != store.StatusActive {
		t.Errorf("status = %q", stored.Status)
	}
	// Raw capture: derived fields stay empty until enrichment.
	if len(stored.Keywords) != 0 || len(stored.Tags) != 0 {
		t.Errorf("capture already enriched: %+v", stored)
	}
}

func TestCaptureRejectsEmpty(t *testing.T) {
	engine, _ := newTestEngine(t, nil, nil)
	if _, err := engine.Capture(context.Background(), "   "); err == nil {
		t.Error("expected error for blank content")
	}
}

func TestEnrichDerivesKeywordsAndTags(t *testing.T) {
	engine, st := newTestEngine(t, nil, nil)
	ctx := context.Background()

	idea, err := engine.CaptureAndEnrich(ctx, "buy milk and eggs for breakfast")
	if err != nil {
		t.Fatalf("CaptureAndEnrich: %v", err)
	}

	if len(idea.Keywords) == 0 {
		t.Fatal("no keywords derived")
	}
	wantKeywords := map[string]bool{"buy": true, "milk": true, "egg": true, "breakfast": true}
	for _, kw := range idea.Keywords {
		if !wantKeywords[kw] {
			t.Errorf("unexpected keyword %q", kw)
		}
	}
	if len(idea.LexicalVector) == 0 {
		t.Error("no lexical vector derived")
	}
	if len(idea.Tags) == 0 || len(idea.Tags) > store.MaxTags {
		t.Errorf("tags = %v", idea.Tags)
	}
	// Without a classifier, tags are normalized top keywords.
	for _, tag := range idea.Tags {
		if tag != nlp.NormalizeTag(tag) {
			t.Errorf("tag %q not normalized", tag)
		}
	}

	// Theme counters bumped once per tag.
	for _, tag := range idea.Tags {
		theme, err := st.GetTheme(ctx, tag)
		if err != nil {
			t.Fatal(err)
		}
		if theme == nil || theme.TotalCount != 1 {
			t.Errorf("theme %q not counted: %+v", tag, theme)
		}
	}
}

func TestEnrichMissingIdea(t *testing.T) {
	engine, _ := newTestEngine(t, nil, nil)
	if err := engine.Enrich(context.Background(), "ghost"); err == nil {
		t.Error("expected error for missing idea")
	}
}

func TestEnrichContinuesWhenEmbeddingFails(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("backend down")}
	engine, _ := newTestEngine(t, embedder, nil)

	idea, err := engine.CaptureAndEnrich(context.Background(), "note taken while offline")
	if err != nil {
		t.Fatalf("CaptureAndEnrich: %v", err)
	}
	if len(idea.Embedding) != 0 {
		t.Error("embedding present despite backend failure")
	}
	if len(idea.Keywords) == 0 {
		t.Error("lexical enrichment skipped on embedding failure")
	}
}

func TestEnrichStoresEmbedding(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{0.6, 0.8, 0}}
	engine, st := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	idea, err := engine.CaptureAndEnrich(ctx, "a semantic thought")
	if err != nil {
		t.Fatal(err)
	}
	vec, err := st.GetEmbedding(ctx, idea.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 0.6 {
		t.Errorf("stored embedding = %v", vec)
	}
}

func TestLexicalEdgesBetweenSimilarIdeas(t *testing.T) {
	engine, st := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if _, err := engine.CaptureAndEnrich(ctx, "buy milk eggs bread at the store"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CaptureAndEnrich(ctx, "completely unrelated quantum physics lecture"); err != nil {
		t.Fatal(err)
	}
	second, err := engine.CaptureAndEnrich(ctx, "buy milk eggs bread for the fridge")
	if err != nil {
		t.Fatal(err)
	}

	edges, err := st.EdgesForIdea(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1 (to the grocery idea only)", len(edges))
	}
	if edges[0].Score < engine.opts.LexicalThreshold {
		t.Errorf("edge score %v below threshold", edges[0].Score)
	}
}

func TestSemanticEdgesBetweenSimilarIdeas(t *testing.T) {
	embedder := &stubEmbedder{
		byPhrase: map[string][]float32{
			"guitar": {1, 0, 0},
			"taxes":  {0, 1, 0},
		},
	}
	engine, st := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	first, err := engine.CaptureAndEnrich(ctx, "practice guitar scales tonight")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CaptureAndEnrich(ctx, "file taxes before deadline"); err != nil {
		t.Fatal(err)
	}
	second, err := engine.CaptureAndEnrich(ctx, "learn a new guitar chord progression")
	if err != nil {
		t.Fatal(err)
	}

	edges, err := st.EdgesForIdea(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].TargetID != first.ID {
		t.Errorf("edge targets %s, want %s", edges[0].TargetID, first.ID)
	}
	// Identical stub embeddings: cosine 1, well above the lexical score.
	if edges[0].Score < 0.99 {
		t.Errorf("edge score = %v, want the semantic max", edges[0].Score)
	}
}

func TestAssembleTags(t *testing.T) {
	got := assembleTags(
		[]string{"Groceries", "groceries", "Health"},
		[]string{"milk", "health", "egg", "bread", "butter"},
	)
	want := []string{"Groceries", "Health", "Milk", "Egg", "Bread"}
	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags = %v, want %v", got, want)
		}
	}
}

func TestAssembleTagsEmptyInputs(t *testing.T) {
	if got := assembleTags(nil, nil); len(got) != 0 {
		t.Errorf("tags = %v, want none", got)
	}
	if got := assembleTags([]string{"", "  "}, nil); len(got) != 0 {
		t.Errorf("blank tags survived: %v", got)
	}
}

func TestReprocessAllRebuildsDerivedData(t *testing.T) {
	engine, st := newTestEngine(t, nil, nil)
	ctx := context.Background()

	contents := []string{
		"buy milk eggs bread at the store",
		"buy milk eggs bread for the fridge",
		"practice guitar scales tonight",
	}
	for _, c := range contents {
		if _, err := engine.CaptureAndEnrich(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	before, err := st.ListEdges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) == 0 {
		t.Fatal("expected edges before reprocess")
	}

	result, err := engine.ReprocessAll(ctx)
	if err != nil {
		t.Fatalf("ReprocessAll: %v", err)
	}
	if result.Processed != 3 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}

	after, err := st.ListEdges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) == 0 {
		t.Error("no edges rebuilt")
	}

	// Theme counters rebuilt from scratch, not doubled.
	themes, err := st.ListThemes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, theme := range themes {
		ideas, err := st.IdeasByTag(ctx, theme.Name)
		if err != nil {
			t.Fatal(err)
		}
		if theme.TotalCount != len(ideas) {
			t.Errorf("theme %q count %d, want %d", theme.Name, theme.TotalCount, len(ideas))
		}
	}
}

func TestNotifierSignalsOnEnrich(t *testing.T) {
	engine, _ := newTestEngine(t, nil, nil)
	updates := engine.Notifier().Subscribe()

	if _, err := engine.CaptureAndEnrich(context.Background(), "signal test idea"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-updates:
	default:
		t.Error("no graph-updated signal after enrich")
	}
}
