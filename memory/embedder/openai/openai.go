// Package openai embeds text through the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

// Known model output sizes. Unknown models are rejected at construction
// so a dimension mismatch can't silently corrupt a collection.
var modelDims = map[goopenai.EmbeddingModel]int{
	goopenai.SmallEmbedding3: 1536,
	goopenai.LargeEmbedding3: 3072,
	goopenai.AdaEmbeddingV2:  1536,
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	model  goopenai.EmbeddingModel
	dims   int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel selects the embedding model. The default is
// text-embedding-3-small.
func WithModel(model goopenai.EmbeddingModel) Option {
	return func(e *Embedder) {
		e.model = model
	}
}

// New creates an embedder authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Embedder, error) {
	e := &Embedder{
		client: goopenai.NewClient(apiKey),
		model:  goopenai.SmallEmbedding3,
	}
	for _, opt := range opts {
		opt(e)
	}
	dims, ok := modelDims[e.model]
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", e.model)
	}
	e.dims = dims
	return e, nil
}

// Embed requests one embedding from the API.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response for model %q", e.model)
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the model's output size.
func (e *Embedder) Dimensions() int { return e.dims }
