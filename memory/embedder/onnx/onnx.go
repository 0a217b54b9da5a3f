//go:build onnx

// Package onnx embeds text locally through ONNX Runtime, intended for
// sentence-transformer models like all-MiniLM-L6-v2 exported to ONNX.
// It needs the onnxruntime shared library installed on the host, so the
// whole package sits behind the "onnx" build tag.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// maxSeqLen is the token window the MiniLM family was exported with.
	maxSeqLen = 128

	defaultDimensions = 384
)

// BERT special token ids.
const (
	clsToken = 101
	sepToken = 102
	unkToken = 100
)

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the exported model file. Required.
	ModelPath string

	// TokenizerPath is the HuggingFace tokenizer.json next to the model.
	// Required.
	TokenizerPath string

	// LibraryPath locates the onnxruntime shared library. Empty leaves
	// the binding's platform default in place.
	LibraryPath string

	// Dimensions is the embedding size; defaults to 384 (MiniLM-L6).
	Dimensions int
}

// Embedder runs a sentence-transformer model through ONNX Runtime.
type Embedder struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPieceTokenizer
	dims      int
}

// New loads the model and tokenizer. Call Close when done; the session
// holds native resources.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: ModelPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = defaultDimensions
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	tokenizer, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session for %s: %w", cfg.ModelPath, err)
	}

	return &Embedder{session: session, tokenizer: tokenizer, dims: cfg.Dimensions}, nil
}

// Embed tokenizes text, runs the model and mean-pools the hidden states
// into one unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := e.tokenizer.tokenize(text)
	if len(tokens) > maxSeqLen-2 {
		tokens = tokens[:maxSeqLen-2]
	}

	inputIDs := make([]int64, maxSeqLen)
	attentionMask := make([]int64, maxSeqLen)
	tokenTypeIDs := make([]int64, maxSeqLen)

	inputIDs[0] = clsToken
	attentionMask[0] = 1
	for i, tok := range tokens {
		inputIDs[i+1] = tok
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = sepToken
	attentionMask[len(tokens)+1] = 1

	shape := ort.NewShape(1, maxSeqLen)
	inputs := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{inputIDs, attentionMask, tokenTypeIDs} {
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			for _, in := range inputs {
				in.Destroy()
			}
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		inputs = append(inputs, tensor)
	}
	defer func() {
		for _, in := range inputs {
			in.Destroy()
		}
	}()

	outputs := []ort.Value{nil}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	return e.pool(tensor, attentionMask)
}

// pool reduces the model output to a single normalized vector. Exports
// differ: some models emit pre-pooled [1, dims], others raw hidden
// states [1, seq, dims] needing attention-masked mean pooling.
func (e *Embedder) pool(tensor *ort.Tensor[float32], attentionMask []int64) ([]float32, error) {
	data := tensor.GetData()
	shape := tensor.GetShape()

	switch len(shape) {
	case 2:
		if len(data) < e.dims {
			return nil, fmt.Errorf("output size %d below expected %d", len(data), e.dims)
		}
		vec := make([]float32, e.dims)
		copy(vec, data[:e.dims])
		normalize(vec)
		return vec, nil

	case 3:
		seqLen, hidden := int(shape[1]), int(shape[2])
		if shape[0] != 1 || hidden != e.dims {
			return nil, fmt.Errorf("unexpected output shape %v for %d dims", shape, e.dims)
		}
		vec := make([]float32, e.dims)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			row := data[i*hidden : (i+1)*hidden]
			for j, v := range row {
				vec[j] += v
			}
		}
		if attended > 0 {
			for j := range vec {
				vec[j] /= attended
			}
		}
		normalize(vec)
		return vec, nil

	default:
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.dims }

// Close releases the native session.
func (e *Embedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// wordPieceTokenizer is a minimal BERT WordPiece tokenizer driven by the
// vocab section of a HuggingFace tokenizer.json. It skips the full
// normalizer pipeline; for embedding short memory texts the lowercase +
// punctuation-trim approximation is close enough.
type wordPieceTokenizer struct {
	vocab map[string]int
}

func loadTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer has empty vocab")
	}
	return &wordPieceTokenizer{vocab: file.Model.Vocab}, nil
}

func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		tokens = append(tokens, t.split(word)...)
	}
	return tokens
}

// split applies greedy longest-prefix WordPiece matching, with the ##
// continuation prefix after the first piece.
func (t *wordPieceTokenizer) split(word string) []int64 {
	var ids []int64
	start := 0
	for start < len(word) {
		matched := false
		for end := len(word); end > start; end-- {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				ids = append(ids, int64(id))
				start = end
				matched = true
				break
			}
		}
		if !matched {
			ids = append(ids, unkToken)
			start++
		}
	}
	return ids
}
