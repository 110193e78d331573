package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex answers nearest-neighbour queries over one document's chunks.
// An index is immutable once built and safe for concurrent queries.
type VectorIndex interface {
	// Query returns the min(k, Len()) entries most similar to vector by
	// cosine similarity, most similar first. Ties keep insertion order.
	// Returns domain.ErrConfiguration if k <= 0 or the vector has the
	// wrong dimension.
	Query(vector []float32, k int) (domain.RetrievalResult, error)

	// Len returns the number of entries.
	Len() int

	// Dimensions returns the vector size shared by all entries.
	Dimensions() int
}

// IndexBuilder constructs vector indexes.
type IndexBuilder interface {
	// Build creates an index over entries. Every vector must be non-empty
	// and share one dimension, otherwise domain.ErrConfiguration is
	// returned. An empty entry list returns domain.ErrIngestion.
	Build(ctx context.Context, entries []domain.IndexEntry) (VectorIndex, error)

	// Name identifies the index implementation.
	Name() string
}
