package flat

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func entry(id string, v ...float32) domain.IndexEntry {
	return domain.IndexEntry{Chunk: domain.Chunk{ID: id, Text: id}, Vector: v}
}

func TestBuilder_Name(t *testing.T) {
	assert.Equal(t, "flat", NewBuilder().Name())
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewBuilder().Build(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrIngestion)

	_, err = NewBuilder().Build(ctx, []domain.IndexEntry{entry("a", 1, 0), entry("b", 1)})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewBuilder().Build(ctx, []domain.IndexEntry{entry("a")})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, []domain.IndexEntry{entry("a", 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

// Scenario: three orthogonal-ish vectors, query closest to the second.
func TestQuery_Ranking(t *testing.T) {
	idx, err := New(context.Background(), []domain.IndexEntry{
		entry("A", 1, 0, 0),
		entry("B", 0, 1, 0),
		entry("C", 0, 0, 1),
	})
	require.NoError(t, err)

	res, err := idx.Query([]float32{0.1, 0.9, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "B", res[0].Chunk.ID)
	assert.Equal(t, "A", res[1].Chunk.ID)
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestQuery_KLargerThanN(t *testing.T) {
	idx, err := New(context.Background(), []domain.IndexEntry{entry("A", 1, 0), entry("B", 0, 1)})
	require.NoError(t, err)

	res, err := idx.Query([]float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestQuery_InvalidInput(t *testing.T) {
	idx, err := New(context.Background(), []domain.IndexEntry{entry("A", 1, 0)})
	require.NoError(t, err)

	_, err = idx.Query([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = idx.Query([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := New(context.Background(), []domain.IndexEntry{
		entry("first", 1, 1),
		entry("other", -1, 0),
		entry("second", 1, 1),
		entry("third", 1, 1),
	})
	require.NoError(t, err)

	res, err := idx.Query([]float32{1, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, ids(res))
}

func TestQuery_ZeroVector(t *testing.T) {
	idx, err := New(context.Background(), []domain.IndexEntry{entry("a", 1, 0), entry("b", 0, 1)})
	require.NoError(t, err)

	res, err := idx.Query([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(res))
	assert.Equal(t, 0.0, res[0].Score)
}

func TestNew_CopiesEntries(t *testing.T) {
	v := []float32{1, 0}
	idx, err := New(context.Background(), []domain.IndexEntry{{Chunk: domain.Chunk{ID: "a"}, Vector: v}})
	require.NoError(t, err)

	v[0], v[1] = 0, 1
	res, err := idx.Query([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestQuery_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 7, 50} {
		entries := make([]domain.IndexEntry, n)
		for i := range entries {
			entries[i] = entry(fmt.Sprintf("c%d", i), randVec(rng, 16)...)
		}
		idx, err := New(context.Background(), entries)
		require.NoError(t, err)
		assert.Equal(t, n, idx.Len())
		assert.Equal(t, 16, idx.Dimensions())

		for _, k := range []int{1, 3, 10, 100} {
			q := randVec(rng, 16)
			first, err := idx.Query(q, k)
			require.NoError(t, err)
			second, err := idx.Query(q, k)
			require.NoError(t, err)

			assert.Len(t, first, min(k, n))
			assert.Equal(t, first, second)
			for i := 1; i < len(first); i++ {
				assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
			}
		}
	}
}

func TestQuery_Concurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := make([]domain.IndexEntry, 100)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("c%d", i), randVec(rng, 8)...)
	}
	idx, err := New(context.Background(), entries)
	require.NoError(t, err)

	q := randVec(rng, 8)
	want, err := idx.Query(q, 5)
	require.NoError(t, err)

	done := make(chan domain.RetrievalResult, 8)
	for range 8 {
		go func() {
			res, _ := idx.Query(q, 5)
			done <- res
		}()
	}
	for range 8 {
		assert.Equal(t, want, <-done)
	}
}

func randVec(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func ids(res domain.RetrievalResult) []string {
	out := make([]string, len(res))
	for i, sc := range res {
		out[i] = sc.Chunk.ID
	}
	return out
}

// Scenario C: querying with chunk 3's own embedding returns chunk 3.
func TestQuery_IdenticalVector(t *testing.T) {
	entries := []domain.IndexEntry{
		entry("c0", 0.1, 0.2, 0.3, 0.4),
		entry("c1", -0.5, 0.1, 0.0, 0.2),
		entry("c2", 0.9, -0.1, 0.3, 0.0),
		entry("c3", 0.2, 0.7, -0.4, 0.5),
		entry("c4", 0.3, 0.3, 0.3, -0.3),
	}
	idx, err := NewBuilder().Build(context.Background(), entries)
	require.NoError(t, err)

	res, err := idx.Query(entries[3].Vector, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "c3", res[0].Chunk.ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
}
