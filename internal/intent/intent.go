// Package intent elevates coarse-grained tags by matching an idea's
// embedding against a small fixed set of concept embeddings.
package intent

import (
	"context"
	"fmt"

	"github.com/rizkyguvio/ThinkTank/internal/similarity"
)

// MatchThreshold is the minimum cosine similarity between an idea and a
// concept seed for the concept's tag to apply.
const MatchThreshold = 0.70

// Concept is a coarse semantic category with a seed phrase that anchors
// its embedding.
type Concept struct {
	Tag  string
	Seed string
}

// Concepts is the fixed concept set. Order determines tag priority when
// multiple concepts match.
var Concepts = []Concept{
	{Tag: "Groceries", Seed: "buying groceries and food shopping list items"},
	{Tag: "Work", Seed: "work tasks meetings deadlines and office projects"},
	{Tag: "Health", Seed: "health fitness exercise doctor appointments and wellbeing"},
	{Tag: "Finance", Seed: "money budgeting bills investments and personal finance"},
	{Tag: "Creative", Seed: "creative writing art music and design ideas"},
	{Tag: "Home", Seed: "home chores repairs furniture and household errands"},
	{Tag: "Tech", Seed: "software programming gadgets and technology"},
	{Tag: "Plans", Seed: "plans trips events scheduling and things to organize"},
	{Tag: "Learning", Seed: "studying courses books and things to learn"},
}

// Embedder is the slice of the NLP collaborator the classifier needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier matches idea embeddings against cached concept embeddings.
type Classifier struct {
	concepts []Concept
	vectors  [][]float32
}

// NewClassifier embeds every concept seed once. Seeds that fail to embed
// are kept with a nil vector and simply never match.
func NewClassifier(ctx context.Context, embedder Embedder) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	c := &Classifier{
		concepts: Concepts,
		vectors:  make([][]float32, len(Concepts)),
	}
	for i, concept := range Concepts {
		vec, err := embedder.Embed(ctx, concept.Seed)
		if err != nil {
			return nil, fmt.Errorf("embedding concept %q: %w", concept.Tag, err)
		}
		c.vectors[i] = vec
	}
	return c, nil
}

// DetectIntents returns the tags of every concept whose embedding scores
// at or above MatchThreshold against the given embedding. All matches
// are surfaced, not just the best; a nil embedding matches nothing.
func (c *Classifier) DetectIntents(embedding []float32) []string {
	if len(embedding) == 0 {
		return nil
	}

	var tags []string
	for i, concept := range c.concepts {
		if len(c.vectors[i]) == 0 {
			continue
		}
		if similarity.Cosine(embedding, c.vectors[i]) >= MatchThreshold {
			tags = append(tags, concept.Tag)
		}
	}
	return tags
}
