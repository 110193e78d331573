// Package lsh provides an approximate vector index based on
// random-hyperplane locality-sensitive hashing.
//
// Each of several hash tables assigns a vector the sign pattern of its
// projections onto random hyperplanes. A query only scores entries that
// share a bucket with it in at least one table. Scores are exact cosine
// similarities, but a relevant entry in no shared bucket is missed, so
// recall can be lower than with the flat index. When the buckets hold
// fewer than k entries the query falls back to a full scan, so results
// always have min(k, n) entries.
package lsh

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vector"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Default configuration values
const (
	DefaultTables = 8
	DefaultBits   = 6
	DefaultSeed   = 1
)

// Ensure the types implement the interfaces.
var (
	_ driven.IndexBuilder = (*Builder)(nil)
	_ driven.VectorIndex  = (*Index)(nil)
)

// Option configures the builder.
type Option func(*Builder)

// WithTables sets the number of hash tables.
func WithTables(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.tables = n
		}
	}
}

// WithBits sets the number of hyperplanes per table, at most 64.
func WithBits(n int) Option {
	return func(b *Builder) {
		if n > 0 && n <= 64 {
			b.bits = n
		}
	}
}

// WithSeed sets the hyperplane seed. Equal seeds give equal indexes.
func WithSeed(seed uint64) Option {
	return func(b *Builder) {
		b.seed = seed
	}
}

// Builder creates LSH indexes.
type Builder struct {
	tables int
	bits   int
	seed   uint64
}

// NewBuilder creates an LSH index builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{tables: DefaultTables, bits: DefaultBits, seed: DefaultSeed}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the index implementation.
func (b *Builder) Name() string {
	return string(domain.IndexLSH)
}

// Build creates an index over a copy of entries.
func (b *Builder) Build(ctx context.Context, entries []domain.IndexEntry) (driven.VectorIndex, error) {
	dim, err := vector.ValidateEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("lsh: build: %w", err)
	}

	rng := rand.New(rand.NewPCG(b.seed, uint64(dim)))
	idx := &Index{
		entries: make([]domain.IndexEntry, len(entries)),
		norms:   make([]float64, len(entries)),
		dim:     dim,
		tables:  make([]table, b.tables),
	}
	for t := range idx.tables {
		idx.tables[t] = newTable(rng, b.bits, dim)
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := make([]float32, dim)
		copy(v, e.Vector)
		idx.entries[i] = domain.IndexEntry{Chunk: e.Chunk, Vector: v}
		idx.norms[i] = vector.Norm(v)
		for t := range idx.tables {
			idx.tables[t].add(v, i)
		}
	}
	return idx, nil
}

type table struct {
	planes  [][]float32
	buckets map[uint64][]int
}

func newTable(rng *rand.Rand, bits, dim int) table {
	planes := make([][]float32, bits)
	for i := range planes {
		p := make([]float32, dim)
		for j := range p {
			p[j] = float32(rng.NormFloat64())
		}
		planes[i] = p
	}
	return table{planes: planes, buckets: make(map[uint64][]int)}
}

func (t table) hash(v []float32) uint64 {
	var h uint64
	for i, p := range t.planes {
		var dot float32
		for j := range p {
			dot += p[j] * v[j]
		}
		if dot >= 0 {
			h |= 1 << uint(i)
		}
	}
	return h
}

func (t table) add(v []float32, pos int) {
	h := t.hash(v)
	t.buckets[h] = append(t.buckets[h], pos)
}

// Index is an immutable approximate cosine similarity index.
type Index struct {
	entries []domain.IndexEntry
	norms   []float64
	dim     int
	tables  []table
}

// Query returns the min(k, Len()) most similar entries among the
// query's bucket neighbours.
func (idx *Index) Query(query []float32, k int) (domain.RetrievalResult, error) {
	if err := vector.ValidateQuery(query, k, idx.dim); err != nil {
		return nil, fmt.Errorf("lsh: query: %w", err)
	}

	marked := make([]bool, len(idx.entries))
	count := 0
	for _, t := range idx.tables {
		for _, pos := range t.buckets[t.hash(query)] {
			if !marked[pos] {
				marked[pos] = true
				count++
			}
		}
	}

	full := count < min(k, len(idx.entries))
	qn := vector.Norm(query)
	cands := make([]vector.Candidate, 0, count)
	for i, e := range idx.entries {
		if full || marked[i] {
			cands = append(cands, vector.Candidate{Pos: i, Score: vector.Cosine(query, e.Vector, qn, idx.norms[i])})
		}
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
