package nlp

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
)

// maxSequenceLength truncates encoder input to the usual BERT limit.
const maxSequenceLength = 256

// WordpieceEncoder wraps a BERT-style wordpiece tokenizer for the ONNX
// embedding path. It is not a keyword tokenizer — subword pieces make
// poor keywords — its job is producing model input ids.
type WordpieceEncoder struct {
	tk *tokenizer.Tokenizer
}

// NewWordpieceEncoder loads a vocab.txt and assembles the standard BERT
// pipeline around it: lowercasing normalizer, whitespace/punctuation
// pre-tokenizer, [CLS]/[SEP] post-processing.
func NewWordpieceEncoder(vocabPath string) (*WordpieceEncoder, error) {
	model, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("loading wordpiece vocab %s: %w", vocabPath, err)
	}

	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	sepID, ok := tk.TokenToId("[SEP]")
	if !ok {
		return nil, fmt.Errorf("vocab %s has no [SEP] token", vocabPath)
	}
	clsID, ok := tk.TokenToId("[CLS]")
	if !ok {
		return nil, fmt.Errorf("vocab %s has no [CLS] token", vocabPath)
	}
	tk.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Id: sepID, Value: "[SEP]"},
		processor.PostToken{Id: clsID, Value: "[CLS]"},
	))

	return &WordpieceEncoder{tk: tk}, nil
}

// Encode returns input ids and attention mask for one text, truncated
// to maxSequenceLength.
func (e *WordpieceEncoder) Encode(text string) (ids, mask []int64, err error) {
	encoding, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding text: %w", err)
	}

	rawIDs := encoding.GetIds()
	rawMask := encoding.GetAttentionMask()
	if len(rawIDs) > maxSequenceLength {
		rawIDs = rawIDs[:maxSequenceLength]
		rawMask = rawMask[:maxSequenceLength]
	}

	ids = make([]int64, len(rawIDs))
	mask = make([]int64, len(rawMask))
	for i, id := range rawIDs {
		ids[i] = int64(id)
	}
	for i, m := range rawMask {
		mask[i] = int64(m)
	}
	return ids, mask, nil
}
