package memory

import "context"

// Embedder converts text to a fixed-length vector.
//
// Note: Embedder is an implementation detail of Store; nothing above the
// memory layer touches vectors directly.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size, fixed per provider.
	Dimensions() int
}

// Point is one persisted unit in a collection: an id, an embedding and a
// flat string payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]string
}

// ScoredPoint is one search hit with its cosine similarity score.
type ScoredPoint struct {
	Payload map[string]string
	Score   float32
}

// RangeFilter restricts search hits to payloads whose Key value is >=
// GTE. Values compare lexicographically; with the fixed-width timestamp
// layout that doubles as a time filter.
type RangeFilter struct {
	Key string
	GTE string
}

// SearchParams bound a nearest-neighbor query. Hits scoring below
// ScoreThreshold are excluded before the limit applies.
type SearchParams struct {
	Limit          int
	ScoreThreshold float32
	Filter         *RangeFilter
}

// Index is the vector collection backend. Implementations: chromem
// (embedded, pure Go) and qdrant (server). Implementations are expected
// to be safe for concurrent use; the Store performs no locking of its
// own.
type Index interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a cosine-distance collection sized to
	// dims. Callers check existence first; creating an existing
	// collection is implementation-defined.
	CreateCollection(ctx context.Context, name string, dims int) error

	// DeleteCollection removes the collection. Absence is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert writes points. With wait set the call returns only after
	// the write is durable enough to be visible to a following search.
	Upsert(ctx context.Context, collection string, points []Point, wait bool) error

	// Search returns the nearest neighbors of vector, best first.
	Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]ScoredPoint, error)

	// Close releases backend resources.
	Close() error
}
