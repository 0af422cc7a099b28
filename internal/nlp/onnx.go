package nlp

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures the local embedding runner.
type ONNXConfig struct {
	ModelPath   string // MiniLM-class sentence transformer exported to ONNX
	VocabPath   string // matching wordpiece vocab.txt
	LibraryPath string // optional onnxruntime shared library override
	Dimensions  int    // hidden size, default 384
}

// ONNXEmbedder runs a local sentence-transformer model. Output vectors
// are mean-pooled over the attention mask and L2-normalized.
type ONNXEmbedder struct {
	cfg     ONNXConfig
	encoder *WordpieceEncoder
	session *ort.DynamicAdvancedSession

	// The session is not safe for concurrent Run calls; one inference
	// at a time.
	mu sync.Mutex
}

var ortInitOnce sync.Once
var ortInitErr error

// NewONNXEmbedder loads the vocab, initializes the onnxruntime
// environment, and opens a dynamic session so sequence length can vary
// per call.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return nil, fmt.Errorf("model and vocab paths are required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 384
	}

	encoder, err := NewWordpieceEncoder(cfg.VocabPath)
	if err != nil {
		return nil, err
	}

	ortInitOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", ortInitErr)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session for %s: %w", cfg.ModelPath, err)
	}

	return &ONNXEmbedder{cfg: cfg, encoder: encoder, session: session}, nil
}

// Close releases the inference session.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

// Embed produces one sentence embedding. Empty text yields nil, nil.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, err := e.encoder.Encode(text)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.infer(ids, mask)
}

// EmbedBatch embeds texts one at a time. Local inference gains little
// from request batching and fixed-size batches would force padding.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		result[i] = vec
	}
	return result, nil
}

// Dimensions returns the configured hidden size.
func (e *ONNXEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

func (e *ONNXEmbedder) infer(ids, mask []int64) ([]float32, error) {
	seqLen := int64(len(ids))
	inputShape := ort.NewShape(1, seqLen)

	idsTensor, err := ort.NewTensor(inputShape, ids)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(inputShape, mask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeIDs := make([]int64, len(ids))
	typeTensor, err := ort.NewTensor(inputShape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outShape := ort.NewShape(1, seqLen, int64(e.cfg.Dimensions))
	outTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}
	defer outTensor.Destroy()

	if e.session == nil {
		return nil, fmt.Errorf("embedder is closed")
	}
	err = e.session.Run(
		[]ort.Value{idsTensor, maskTensor, typeTensor},
		[]ort.Value{outTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}

	return meanPool(outTensor.GetData(), mask, e.cfg.Dimensions), nil
}

// meanPool averages token vectors over the attention mask and
// L2-normalizes the result.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	pooled := make([]float32, dims)
	var count float32

	for tok := range mask {
		if mask[tok] == 0 {
			continue
		}
		offset := tok * dims
		if offset+dims > len(hidden) {
			break
		}
		for d := 0; d < dims; d++ {
			pooled[d] += hidden[offset+d]
		}
		count++
	}
	if count == 0 {
		return nil
	}

	var norm float64
	for d := range pooled {
		pooled[d] /= count
		norm += float64(pooled[d]) * float64(pooled[d])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}
	for d := range pooled {
		pooled[d] = float32(float64(pooled[d]) / norm)
	}
	return pooled
}
