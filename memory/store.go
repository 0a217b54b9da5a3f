package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// scoreThreshold is the minimum cosine similarity for a hit to count
	// as relevant. Below it, vector neighbors are mostly noise.
	scoreThreshold = 0.1

	// recentLimit caps how many entries RecentSince returns.
	recentLimit = 10
)

// DefaultRecallLimit is how many memories Recall surfaces per query
// unless overridden with WithRecallLimit.
const DefaultRecallLimit = 2

// Store binds one named collection to an embedder and an index.
type Store struct {
	collection string
	embedder   Embedder
	index      Index
	limit      int
	log        zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRecallLimit sets how many memories Recall returns per query.
func WithRecallLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the store's logger. The default discards logs.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store over the named collection. The collection itself
// is created lazily by EnsureCollection.
func New(collection string, embedder Embedder, index Index, opts ...StoreOption) *Store {
	s := &Store{
		collection: collection,
		embedder:   embedder,
		index:      index,
		limit:      DefaultRecallLimit,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the collection name the store writes to.
func (s *Store) Collection() string { return s.collection }

// EnsureCollection creates the backing collection if it does not exist,
// sized to the embedder's dimensions. Call once at startup.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.index.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	if err := s.index.CreateCollection(ctx, s.collection, s.embedder.Dimensions()); err != nil {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	s.log.Info().Str("collection", s.collection).Int("dims", s.embedder.Dimensions()).Msg("created memory collection")
	return nil
}

// DeleteCollection drops the backing collection and everything in it.
func (s *Store) DeleteCollection(ctx context.Context) error {
	if err := s.index.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.collection, err)
	}
	return nil
}

// Store persists one record. The write waits for durability so an
// immediately following Recall can see it.
func (s *Store) Store(ctx context.Context, rec Record) error {
	if rec.Text == "" {
		return errors.New("memory: record text is empty")
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	vec, err := s.embedder.Embed(ctx, rec.embeddingText())
	if err != nil {
		return fmt.Errorf("embed record: %w", err)
	}
	point := Point{
		ID:      rand.Uint64(),
		Vector:  vec,
		Payload: rec.payload(ts),
	}
	if err := s.index.Upsert(ctx, s.collection, []Point{point}, true); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	s.log.Debug().Str("collection", s.collection).Uint64("id", point.ID).Msg("stored memory")
	return nil
}

// Recall returns formatted memories similar to query, most similar
// first. The single best hit is discarded before formatting: when the
// query text was itself just stored, that hit is the query echoing back.
// Each line carries the memory text, its date and its similarity score.
func (s *Store) Recall(ctx context.Context, query string) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Search(ctx, s.collection, vec, SearchParams{
		Limit:          s.limit + 1,
		ScoreThreshold: scoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", s.collection, err)
	}
	if len(hits) > 0 {
		hits = hits[1:]
	}
	return s.format(hits, true), nil
}

// RecentSince returns memories stored within the trailing window,
// best-effort: any failure yields an empty result rather than an error,
// because the recent-memory block is decoration a chat turn can live
// without.
func (s *Store) RecentSince(ctx context.Context, window time.Duration) []string {
	bound := time.Now().UTC().Add(-window)
	vec, err := s.embedder.Embed(ctx, "")
	if err != nil {
		s.log.Warn().Err(err).Msg("embed for recent scan failed")
		return nil
	}
	hits, err := s.index.Search(ctx, s.collection, vec, SearchParams{
		Limit:          recentLimit,
		ScoreThreshold: scoreThreshold,
		Filter: &RangeFilter{
			Key: payloadKeyTimestamp,
			GTE: bound.Format(TimestampLayout),
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("collection", s.collection).Msg("recent scan failed")
		return nil
	}
	return s.format(hits, false)
}

// format renders hits as "text: on date" lines, deduplicating by text
// and keeping hit order. With withScore set the similarity is appended
// when it clears the relevance threshold. Hits with missing or malformed
// timestamps are skipped.
func (s *Store) format(hits []ScoredPoint, withScore bool) []string {
	var lines []string
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		text := hit.Payload[payloadKeyText]
		if text == "" || seen[text] {
			continue
		}
		raw := hit.Payload[payloadKeyTimestamp]
		ts, err := time.Parse(TimestampLayout, raw)
		if err != nil {
			s.log.Debug().Str("datetime", raw).Msg("skipping hit with bad timestamp")
			continue
		}
		seen[text] = true
		line := text + ": on " + ts.Format("2006-01-02")
		if withScore && hit.Score > scoreThreshold {
			line += " score: " + strconv.FormatFloat(float64(hit.Score), 'g', -1, 32)
		}
		lines = append(lines, line)
	}
	return lines
}
