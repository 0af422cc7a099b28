// Package pipeline orchestrates idea enrichment: tokenization,
// vectorization, intent tagging, theme counting, and similarity edge
// creation.
//
// Capture is record-then-process: the raw idea is persisted immediately
// and enrichment runs as its own unit of work afterward. A failed
// enrichment never rolls back the raw idea — it simply stays unenriched
// until the next reprocess.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rizkyguvio/ThinkTank/internal/intent"
	"github.com/rizkyguvio/ThinkTank/internal/nlp"
	"github.com/rizkyguvio/ThinkTank/internal/similarity"
	"github.com/rizkyguvio/ThinkTank/internal/store"
	"github.com/rizkyguvio/ThinkTank/internal/vectorize"
)

// DefaultCandidatePool is how many recent ideas a new capture is scored
// against. A latency/recall trade, not a correctness boundary.
const DefaultCandidatePool = 200

// maxLexicalTags is how many top-weighted keywords become theme tags.
const maxLexicalTags = 3

// DefaultReprocessBatch bounds how many ideas a reprocess pass handles
// between persistence checkpoints.
const DefaultReprocessBatch = 50

// Options tunes the pipeline's thresholds and pool sizes.
type Options struct {
	LexicalThreshold  float64
	SemanticThreshold float64
	CandidatePool     int
	ReprocessBatch    int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		LexicalThreshold:  similarity.DefaultLexicalThreshold,
		SemanticThreshold: similarity.DefaultSemanticThreshold,
		CandidatePool:     DefaultCandidatePool,
		ReprocessBatch:    DefaultReprocessBatch,
	}
}

// Engine runs the ingestion pipeline against a store.
type Engine struct {
	store     store.Store
	tokenizer nlp.Tokenizer
	embedder  nlp.Embedder // may be nil: lexical-only mode
	intents   *intent.Classifier
	opts      Options
	notifier  *Notifier
}

// NewEngine assembles a pipeline. embedder and intents may be nil; all
// semantic features then degrade to contributing nothing.
func NewEngine(st store.Store, tokenizer nlp.Tokenizer, embedder nlp.Embedder, intents *intent.Classifier, opts Options) *Engine {
	if opts.LexicalThreshold == 0 {
		opts.LexicalThreshold = similarity.DefaultLexicalThreshold
	}
	if opts.SemanticThreshold == 0 {
		opts.SemanticThreshold = similarity.DefaultSemanticThreshold
	}
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = DefaultCandidatePool
	}
	if opts.ReprocessBatch <= 0 {
		opts.ReprocessBatch = DefaultReprocessBatch
	}
	return &Engine{
		store:     st,
		tokenizer: tokenizer,
		embedder:  embedder,
		intents:   intents,
		opts:      opts,
		notifier:  NewNotifier(),
	}
}

// Notifier exposes the graph-updated signal for subscribers.
func (e *Engine) Notifier() *Notifier {
	return e.notifier
}

// Capture persists a raw idea and returns it immediately, before any
// enrichment happens.
func (e *Engine) Capture(ctx context.Context, content string) (*store.Idea, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("idea content is empty")
	}

	idea := &store.Idea{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Status:    store.StatusActive,
	}
	if err := e.store.AddIdea(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

// CaptureAndEnrich records an idea and runs enrichment in the same call.
// Hosts with an interactive path should instead Capture, return, and
// run Enrich in the background.
func (e *Engine) CaptureAndEnrich(ctx context.Context, content string) (*store.Idea, error) {
	idea, err := e.Capture(ctx, content)
	if err != nil {
		return nil, err
	}
	if err := e.Enrich(ctx, idea.ID); err != nil {
		return idea, fmt.Errorf("enriching idea %s: %w", idea.ID, err)
	}
	return e.store.GetIdea(ctx, idea.ID)
}

// Enrich runs the full enrichment state machine for one stored idea:
// keywords, embedding, lexical vector, tags, theme counters, and
// similarity edges. Emits the graph-updated signal on success.
func (e *Engine) Enrich(ctx context.Context, ideaID string) error {
	if err := e.enrich(ctx, ideaID, true); err != nil {
		return err
	}
	e.notifier.Notify()
	return nil
}

func (e *Engine) enrich(ctx context.Context, ideaID string, regenerateEmbedding bool) error {
	idea, err := e.store.GetIdea(ctx, ideaID)
	if err != nil {
		return err
	}
	if idea == nil {
		return fmt.Errorf("idea %s not found", ideaID)
	}

	// 1. Tokenize/lemmatize.
	keywords := e.tokenizer.TokenizeAndLemmatize(idea.Content)

	// 2. Embedding. Absence is normal: unsupported language, too-short
	// text, or no embedder configured.
	embedding := idea.Embedding
	if regenerateEmbedding && e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, idea.Content)
		if err != nil {
			log.Printf("pipeline: embedding idea %s failed, continuing lexical-only: %v", ideaID, err)
		} else if len(vec) > 0 {
			embedding = vec
		}
	}

	// 3. Document frequencies from theme counters (no corpus scan).
	docFreq, err := e.themeDocFreq(ctx, keywords)
	if err != nil {
		return err
	}

	// 4. Lexical vector.
	totalIdeas, err := e.store.CountIdeas(ctx)
	if err != nil {
		return err
	}
	vector := vectorize.TFIDF(keywords, docFreq, totalIdeas+1)

	// 5. Tags: intents first, then top lexical keys, deduped
	// case-insensitively, capped.
	var intentTags []string
	if e.intents != nil {
		intentTags = e.intents.DetectIntents(embedding)
	}
	tags := assembleTags(intentTags, vectorize.TopKeys(vector, maxLexicalTags))

	// 6. Persist derived fields.
	if err := e.store.UpdateIdeaDerived(ctx, ideaID, keywords, vector, tags); err != nil {
		return err
	}
	if len(embedding) > 0 && regenerateEmbedding {
		if err := e.store.AddEmbedding(ctx, ideaID, embedding); err != nil {
			return err
		}
	}

	// 7. Theme counters.
	for _, tag := range tags {
		if err := e.store.BumpTheme(ctx, tag); err != nil {
			return err
		}
	}

	// 8. Similarity edges against the recent-idea pool.
	return e.computeEdges(ctx, ideaID, vector, embedding)
}

// themeDocFreq builds a document-frequency map for the idea's keywords
// from theme counters. Theme total counts proxy for token-level document
// frequency — the accepted approximation this engine is built on.
func (e *Engine) themeDocFreq(ctx context.Context, keywords []string) (map[string]int, error) {
	docFreq := make(map[string]int, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}

		theme, err := e.store.GetTheme(ctx, nlp.NormalizeTag(kw))
		if err != nil {
			return nil, err
		}
		if theme != nil {
			docFreq[kw] = theme.TotalCount
		}
	}
	return docFreq, nil
}

// computeEdges scores the idea against the candidate pool and persists
// one edge per qualifying target, merged by max score.
func (e *Engine) computeEdges(ctx context.Context, ideaID string, vector map[string]float64, embedding []float32) error {
	pool, err := e.store.RecentIdeas(ctx, e.opts.CandidatePool+1)
	if err != nil {
		return err
	}

	candidates := make([]similarity.Candidate, 0, len(pool))
	for _, other := range pool {
		if other.ID == ideaID {
			continue
		}
		candidates = append(candidates, similarity.Candidate{
			ID:        other.ID,
			Lexical:   other.LexicalVector,
			Embedding: other.Embedding,
		})
	}
	if len(candidates) > e.opts.CandidatePool {
		candidates = candidates[:e.opts.CandidatePool]
	}

	lexical := similarity.ComputeLexicalEdges(vector, candidates, e.opts.LexicalThreshold)
	semantic := similarity.ComputeSemanticEdges(embedding, candidates, e.opts.SemanticThreshold)

	for _, edge := range similarity.MergeMax(lexical, semantic) {
		if _, err := e.store.AddEdge(ctx, &store.Edge{
			SourceID: ideaID,
			TargetID: edge.TargetID,
			Score:    edge.Score,
		}); err != nil {
			return err
		}
	}
	return nil
}

// assembleTags merges intent tags (priority order, first) with lexical
// tags, deduplicates case-insensitively after canonical normalization,
// and caps at store.MaxTags.
func assembleTags(intentTags, lexicalTags []string) []string {
	tags := make([]string, 0, store.MaxTags)
	seen := make(map[string]struct{}, store.MaxTags)

	add := func(raw string) {
		if len(tags) >= store.MaxTags {
			return
		}
		tag := nlp.NormalizeTag(raw)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	for _, t := range intentTags {
		add(t)
	}
	for _, t := range lexicalTags {
		add(t)
	}
	return tags
}

// ReprocessResult summarizes a full reprocess pass.
type ReprocessResult struct {
	Processed int
	Failed    int
	Duration  time.Duration
}

// ReprocessAll clears all derived theme and edge data, then replays
// enrichment for every idea in ascending creation order so counters
// accumulate the way incremental capture would have produced them.
//
// Work is batched; a failure mid-run leaves some ideas without edges or
// tags until retried, but never corrupts committed idea records.
func (e *Engine) ReprocessAll(ctx context.Context) (*ReprocessResult, error) {
	start := time.Now()

	if err := e.store.ClearDerived(ctx); err != nil {
		return nil, fmt.Errorf("clearing derived data: %w", err)
	}

	ideas, err := e.store.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReprocessResult{}
	for i, idea := range ideas {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Stored embeddings are reused; only ideas that never got one
		// take the embedding path again.
		regenerate := len(idea.Embedding) == 0 && e.embedder != nil
		if err := e.enrich(ctx, idea.ID, regenerate); err != nil {
			log.Printf("pipeline: reprocessing idea %s failed: %v", idea.ID, err)
			result.Failed++
			continue
		}
		result.Processed++

		if (i+1)%e.opts.ReprocessBatch == 0 {
			e.notifier.Notify()
		}
	}

	result.Duration = time.Since(start)
	e.notifier.Notify()
	return result, nil
}
