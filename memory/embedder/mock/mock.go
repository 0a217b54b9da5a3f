// Package mock provides a deterministic offline embedder for tests and
// examples. Vectors are built from per-token hashes, so texts sharing
// words land closer together than unrelated texts. That is nowhere near
// a real semantic embedding, but it is enough for similarity ranking,
// thresholds and round-trip recall to behave believably without network
// access or model files.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimensions matches the output size of the all-MiniLM sentence
// transformer family, so the mock can stand in for the ONNX embedder.
const DefaultDimensions = 384

// Embedder produces deterministic pseudo-embeddings.
type Embedder struct {
	dims int
}

// New returns an embedder emitting vectors of the given size. A
// non-positive size falls back to DefaultDimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed hashes each whitespace token into a pseudo-random direction and
// sums them. Empty text gets a fixed direction of its own so callers
// probing with an empty query still receive a valid unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{"\x00empty"}
	}
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		state := h.Sum64()
		for i := range vec {
			// LCG stretch of the token hash across all components.
			state = state*6364136223846793005 + 1442695040888963407
			vec[i] += float32(int64(state>>32)) / float32(math.MaxInt32)
		}
	}
	normalize(vec)
	return vec, nil
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int { return e.dims }

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
