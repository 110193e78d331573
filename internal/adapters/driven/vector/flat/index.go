// Package flat provides an exact brute-force vector index.
// Every query scores all entries, which is fast enough for the chunk
// counts of a single document.
package flat

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vector"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure the types implement the interfaces.
var (
	_ driven.IndexBuilder = (*Builder)(nil)
	_ driven.VectorIndex  = (*Index)(nil)
)

// Builder creates flat indexes.
type Builder struct{}

// NewBuilder creates a flat index builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Name identifies the index implementation.
func (b *Builder) Name() string {
	return string(domain.IndexFlat)
}

// Build creates an index over a copy of entries.
func (b *Builder) Build(ctx context.Context, entries []domain.IndexEntry) (driven.VectorIndex, error) {
	return New(ctx, entries)
}

// Index is an immutable brute-force cosine similarity index.
type Index struct {
	entries []domain.IndexEntry
	norms   []float64
	dim     int
}

// New builds an index over entries. The entries are copied so later
// changes by the caller do not affect the index.
func New(ctx context.Context, entries []domain.IndexEntry) (*Index, error) {
	dim, err := vector.ValidateEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("flat: build: %w", err)
	}

	idx := &Index{
		entries: make([]domain.IndexEntry, len(entries)),
		norms:   make([]float64, len(entries)),
		dim:     dim,
	}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := make([]float32, dim)
		copy(v, e.Vector)
		idx.entries[i] = domain.IndexEntry{Chunk: e.Chunk, Vector: v}
		idx.norms[i] = vector.Norm(v)
	}
	return idx, nil
}

// Query returns the min(k, Len()) most similar entries.
func (idx *Index) Query(query []float32, k int) (domain.RetrievalResult, error) {
	if err := vector.ValidateQuery(query, k, idx.dim); err != nil {
		return nil, fmt.Errorf("flat: query: %w", err)
	}

	qn := vector.Norm(query)
	cands := make([]vector.Candidate, len(idx.entries))
	for i, e := range idx.entries {
		cands[i] = vector.Candidate{Pos: i, Score: vector.Cosine(query, e.Vector, qn, idx.norms[i])}
	}
	return vector.Result(idx.entries, vector.TopK(cands, k)), nil
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	return idx.dim
}
