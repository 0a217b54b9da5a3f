package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoirplus/memoir-go/memory"
)

func unit(x, y float32) []float32 {
	// Callers pass components of an already-unit vector.
	return []float32{x, y}
}

func point(id uint64, vec []float32, text, datetime string) memory.Point {
	return memory.Point{
		ID:     id,
		Vector: vec,
		Payload: map[string]string{
			"comment":  text,
			"datetime": datetime,
		},
	}
}

func TestCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := New()

	ok, err := idx.HasCollection(ctx, "persona")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))
	ok, err = idx.HasCollection(ctx, "persona")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, idx.DeleteCollection(ctx, "persona"))
	ok, err = idx.HasCollection(ctx, "persona")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is not an error.
	require.NoError(t, idx.DeleteCollection(ctx, "persona"))
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))

	err := idx.Upsert(ctx, "persona", []memory.Point{
		point(1, unit(1, 0), "east", "2026-08-30T10:00:00.000000"),
		point(2, unit(0, 1), "north", "2026-08-30T10:00:00.000000"),
		point(3, unit(0.7071, 0.7071), "northeast", "2026-08-30T10:00:00.000000"),
	}, true)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "persona", unit(1, 0), memory.SearchParams{Limit: 2, ScoreThreshold: 0.1})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "east", hits[0].Payload["comment"])
	assert.Equal(t, "northeast", hits[1].Payload["comment"])
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchAppliesRangeFilter(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))

	err := idx.Upsert(ctx, "persona", []memory.Point{
		point(1, unit(1, 0), "old", "2026-08-01T10:00:00.000000"),
		point(2, unit(1, 0), "new", "2026-08-29T10:00:00.000000"),
	}, true)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "persona", unit(1, 0), memory.SearchParams{
		Limit:  10,
		Filter: &memory.RangeFilter{Key: "datetime", GTE: "2026-08-15T00:00:00.000000"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Payload["comment"])
}

func TestSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))

	hits, err := idx.Search(ctx, "persona", unit(1, 0), memory.SearchParams{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchLimitSmallerThanCollection(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))

	err := idx.Upsert(ctx, "persona", []memory.Point{
		point(1, unit(1, 0), "a", "2026-08-30T10:00:00.000000"),
		point(2, unit(0.9950, 0.0995), "b", "2026-08-30T10:00:00.000000"),
		point(3, unit(0, 1), "c", "2026-08-30T10:00:00.000000"),
	}, true)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "persona", unit(1, 0), memory.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Payload["comment"])
}

func TestUpsertUnknownCollection(t *testing.T) {
	idx := New()
	err := idx.Upsert(context.Background(), "missing", []memory.Point{point(1, unit(1, 0), "x", "")}, true)
	assert.Error(t, err)
}

func TestPersistentReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewPersistent(dir, false)
	require.NoError(t, err)
	require.NoError(t, idx.CreateCollection(ctx, "persona", 2))
	require.NoError(t, idx.Upsert(ctx, "persona", []memory.Point{
		point(1, unit(1, 0), "durable", "2026-08-30T10:00:00.000000"),
	}, true))
	require.NoError(t, idx.Close())

	reopened, err := NewPersistent(dir, false)
	require.NoError(t, err)
	hits, err := reopened.Search(ctx, "persona", unit(1, 0), memory.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "durable", hits[0].Payload["comment"])
}
