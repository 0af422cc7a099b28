// Package nlp is the engine's language collaborator: tokenization,
// lemmatization, and sentence embeddings.
//
// Two embedding backends:
// - HTTP: any OpenAI-compatible /v1/embeddings endpoint (ollama, openai, custom)
// - ONNX: a local MiniLM-class model run through onnxruntime
//
// Embedding is always optional. A nil Embedder, or one that cannot
// produce a vector for a given text, degrades every downstream consumer
// to lexical-only behavior — never an error.
package nlp

import "context"

// Tokenizer turns raw text into normalized keyword tokens.
type Tokenizer interface {
	TokenizeAndLemmatize(text string) []string
}

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
