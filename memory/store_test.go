package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder hashes nothing: it returns a fixed vector so search
// behavior is driven entirely by the fake index.
type fakeEmbedder struct {
	dims int
	err  error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dims), nil
}

func (e *fakeEmbedder) Dimensions() int { return e.dims }

// fakeIndex records calls and replays canned search hits.
type fakeIndex struct {
	collections map[string]bool
	upserted    []Point
	lastParams  SearchParams
	hits        []ScoredPoint
	searchErr   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{collections: make(map[string]bool)}
}

func (f *fakeIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	return f.collections[name], nil
}

func (f *fakeIndex) CreateCollection(ctx context.Context, name string, dims int) error {
	f.collections[name] = true
	return nil
}

func (f *fakeIndex) DeleteCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []Point, wait bool) error {
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]ScoredPoint, error) {
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeIndex) Close() error { return nil }

func hit(text, datetime string, score float32) ScoredPoint {
	return ScoredPoint{
		Payload: map[string]string{
			payloadKeyText:      text,
			payloadKeyTimestamp: datetime,
		},
		Score: score,
	}
}

func TestEnsureCollectionCreatesOnce(t *testing.T) {
	idx := newFakeIndex()
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	require.NoError(t, s.EnsureCollection(context.Background()))
	assert.True(t, idx.collections["persona"])

	// Second call is a no-op against the existing collection.
	require.NoError(t, s.EnsureCollection(context.Background()))
}

func TestStoreWritesPointWithPayload(t *testing.T) {
	idx := newFakeIndex()
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	ts := time.Date(2026, 8, 30, 12, 0, 0, 123456000, time.UTC)
	err := s.Store(context.Background(), Record{
		Text:      "likes hiking",
		Timestamp: ts,
		Title:     "hobby",
		SourceRef: "chat",
		Tags:      map[string]string{"people": "Sam"},
	})
	require.NoError(t, err)

	require.Len(t, idx.upserted, 1)
	p := idx.upserted[0]
	assert.NotZero(t, p.ID)
	assert.Len(t, p.Vector, 8)
	assert.Equal(t, "likes hiking", p.Payload["comment"])
	assert.Equal(t, "2026-08-30T12:00:00.123456", p.Payload["datetime"])
	assert.Equal(t, "hobby", p.Payload["title"])
	assert.Equal(t, "chat", p.Payload["rag_original_ref"])
	assert.Equal(t, "Sam", p.Payload["people"])
}

func TestStoreRejectsEmptyText(t *testing.T) {
	s := New("persona", &fakeEmbedder{dims: 8}, newFakeIndex())
	err := s.Store(context.Background(), Record{})
	assert.Error(t, err)
}

func TestStoreDefaultsTimestampToNow(t *testing.T) {
	idx := newFakeIndex()
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	require.NoError(t, s.Store(context.Background(), Record{Text: "a fact"}))
	require.Len(t, idx.upserted, 1)

	ts, err := time.Parse(TimestampLayout, idx.upserted[0].Payload["datetime"])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestRecallDropsTopHitAndFormats(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = []ScoredPoint{
		hit("self echo", "2026-08-30T10:00:00.000000", 0.99),
		hit("likes hiking", "2026-08-29T08:30:00.000000", 0.75),
		hit("owns a cat", "2026-08-28T09:00:00.000000", 0.5),
	}
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	lines, err := s.Recall(context.Background(), "hobbies")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "likes hiking: on 2026-08-29 score: 0.75", lines[0])
	assert.Equal(t, "owns a cat: on 2026-08-28 score: 0.5", lines[1])

	// One extra neighbor is requested to cover the dropped top hit.
	assert.Equal(t, DefaultRecallLimit+1, idx.lastParams.Limit)
	assert.InDelta(t, 0.1, float64(idx.lastParams.ScoreThreshold), 1e-6)
}

func TestRecallDeduplicatesByText(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = []ScoredPoint{
		hit("top", "2026-08-30T10:00:00.000000", 0.9),
		hit("likes hiking", "2026-08-29T08:30:00.000000", 0.8),
		hit("likes hiking", "2026-08-20T08:30:00.000000", 0.7),
	}
	s := New("persona", &fakeEmbedder{dims: 8}, idx, WithRecallLimit(5))

	lines, err := s.Recall(context.Background(), "hobbies")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "likes hiking: on 2026-08-29"))
}

func TestRecallEmptyWhenNoHits(t *testing.T) {
	s := New("persona", &fakeEmbedder{dims: 8}, newFakeIndex())
	lines, err := s.Recall(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRecentSinceFiltersAndOmitsScore(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = []ScoredPoint{
		hit("fresh fact", "2026-08-30T11:00:00.000000", 0.4),
	}
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	lines := s.RecentSince(context.Background(), 24*time.Hour)
	require.Len(t, lines, 1)
	assert.Equal(t, "fresh fact: on 2026-08-30", lines[0])

	require.NotNil(t, idx.lastParams.Filter)
	assert.Equal(t, "datetime", idx.lastParams.Filter.Key)
	bound, err := time.Parse(TimestampLayout, idx.lastParams.Filter.GTE)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), bound, time.Minute)
	assert.Equal(t, recentLimit, idx.lastParams.Limit)
}

func TestRecentSinceSkipsBadTimestamps(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = []ScoredPoint{
		hit("broken", "not-a-date", 0.4),
		hit("good", "2026-08-30T11:00:00.000000", 0.4),
	}
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	lines := s.RecentSince(context.Background(), time.Hour)
	require.Len(t, lines, 1)
	assert.Equal(t, "good: on 2026-08-30", lines[0])
}

func TestRecentSinceSwallowsFailures(t *testing.T) {
	idx := newFakeIndex()
	idx.searchErr = errors.New("index down")
	s := New("persona", &fakeEmbedder{dims: 8}, idx)
	assert.Empty(t, s.RecentSince(context.Background(), time.Hour))

	s = New("persona", &fakeEmbedder{dims: 8, err: errors.New("embed down")}, newFakeIndex())
	assert.Empty(t, s.RecentSince(context.Background(), time.Hour))
}

func TestRecallPropagatesSearchError(t *testing.T) {
	idx := newFakeIndex()
	idx.searchErr = errors.New("index down")
	s := New("persona", &fakeEmbedder{dims: 8}, idx)

	_, err := s.Recall(context.Background(), "anything")
	assert.Error(t, err)
}

func TestEmbeddingTextIncludesTags(t *testing.T) {
	rec := Record{Text: "met at the lake", Tags: map[string]string{"people": "Sam", "a_place": "Tahoe"}}
	assert.Equal(t, "met at the lake Tahoe Sam", rec.embeddingText())

	rec = Record{Text: "plain"}
	assert.Equal(t, "plain", rec.embeddingText())
}
