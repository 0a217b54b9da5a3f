// Package cached wraps another embedder with a ristretto cache keyed by
// input text. Every recall embeds its query and every turn embeds the
// same empty recent-scan probe, so a small cache removes most of the
// repeat provider calls.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/memoirplus/memoir-go/memory"
)

const (
	defaultMaxEntries = 4096

	// ristretto tracks roughly 10x the admitted entries for frequency
	// estimation.
	counterFactor = 10
)

// Embedder memoizes the inner embedder's results.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache of at most maxEntries vectors. A
// non-positive maxEntries selects a default size.
func New(inner memory.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * counterFactor,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector when available and defers to the
// inner embedder otherwise. Errors are never cached.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return v.([]float32), nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, 1)
	return vec, nil
}

// Dimensions returns the inner embedder's output size.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// Wait blocks until pending cache writes are visible. Admission is
// asynchronous; tests use this to make hit behavior deterministic.
func (e *Embedder) Wait() {
	e.cache.Wait()
}
