// Package chromem adapts the embedded chromem-go vector database to the
// memory.Index interface. It needs no server and persists to a local
// directory, which makes it the default backend for development and the
// examples; production deployments point the store at qdrant instead.
package chromem

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/memoirplus/memoir-go/memory"
)

// Index is a memory.Index backed by chromem-go.
//
// chromem's native where-filters are equality-only, so range filters and
// score thresholds are applied here after querying. Queries are bounded
// by the collection's document count because chromem rejects nResults
// larger than the collection.
type Index struct {
	db *chromem.DB
}

// New returns an in-memory index. Contents are lost on process exit.
func New() *Index {
	return &Index{db: chromem.NewDB()}
}

// NewPersistent returns an index persisted under dir, created if needed.
func NewPersistent(dir string, compress bool) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
	}
	return &Index{db: db}, nil
}

// HasCollection reports whether name exists.
func (x *Index) HasCollection(ctx context.Context, name string) (bool, error) {
	return x.db.GetCollection(name, nil) != nil, nil
}

// CreateCollection creates the collection. chromem infers vector size
// from the first upserted point, so dims is not enforced here.
func (x *Index) CreateCollection(ctx context.Context, name string, dims int) error {
	if _, err := x.db.CreateCollection(name, nil, nil); err != nil {
		return fmt.Errorf("create chromem collection %q: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the collection; absence is not an error.
func (x *Index) DeleteCollection(ctx context.Context, name string) error {
	if x.db.GetCollection(name, nil) == nil {
		return nil
	}
	if err := x.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete chromem collection %q: %w", name, err)
	}
	return nil
}

// Upsert writes points. chromem writes are synchronous, so wait is
// always honored.
func (x *Index) Upsert(ctx context.Context, collection string, points []memory.Point, wait bool) error {
	col := x.db.GetCollection(collection, nil)
	if col == nil {
		return fmt.Errorf("chromem collection %q does not exist", collection)
	}
	for _, p := range points {
		doc := chromem.Document{
			ID:        strconv.FormatUint(p.ID, 10),
			Content:   p.Payload["comment"],
			Embedding: p.Vector,
			Metadata:  p.Payload,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("add document %d: %w", p.ID, err)
		}
	}
	return nil
}

// Search returns the nearest neighbors of vector, filtered and
// thresholded client-side.
func (x *Index) Search(ctx context.Context, collection string, vector []float32, params memory.SearchParams) ([]memory.ScoredPoint, error) {
	col := x.db.GetCollection(collection, nil)
	if col == nil {
		return nil, fmt.Errorf("chromem collection %q does not exist", collection)
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// With a range filter every document is a candidate until filtered,
	// so the whole collection is queried and trimmed afterwards.
	n := params.Limit
	if params.Filter != nil || n > count {
		n = count
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query chromem collection %q: %w", collection, err)
	}

	hits := make([]memory.ScoredPoint, 0, len(results))
	for _, r := range results {
		if r.Similarity < params.ScoreThreshold {
			continue
		}
		if f := params.Filter; f != nil && r.Metadata[f.Key] < f.GTE {
			continue
		}
		hits = append(hits, memory.ScoredPoint{Payload: r.Metadata, Score: r.Similarity})
		if params.Limit > 0 && len(hits) == params.Limit {
			break
		}
	}
	return hits, nil
}

// Close is a no-op; chromem holds no connections.
func (x *Index) Close() error { return nil }
