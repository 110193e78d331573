package vector

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b given their norms.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// ValidateEntries checks that entries are non-empty and share one
// non-zero dimension, which it returns.
func ValidateEntries(entries []domain.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: no entries to index", domain.ErrIngestion)
	}
	dim := len(entries[0].Vector)
	if dim == 0 {
		return 0, fmt.Errorf("%w: entry 0 has an empty vector", domain.ErrConfiguration)
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: entry %d has dimension %d, expected %d",
				domain.ErrConfiguration, i, len(e.Vector), dim)
		}
	}
	return dim, nil
}

// ValidateQuery checks k and the query dimension.
func ValidateQuery(vector []float32, k, dim int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", domain.ErrConfiguration, k)
	}
	if len(vector) != dim {
		return fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrConfiguration, len(vector), dim)
	}
	return nil
}

// Candidate is a scored entry position.
type Candidate struct {
	Pos   int
	Score float64
}

// TopK sorts candidates by descending score, ties by ascending position,
// and returns at most k of them.
func TopK(cands []Candidate, k int) []Candidate {
	slices.SortFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Pos, b.Pos)
	})
	if k < len(cands) {
		cands = cands[:k]
	}
	return cands
}

// Result converts candidates into a retrieval result.
func Result(entries []domain.IndexEntry, cands []Candidate) domain.RetrievalResult {
	out := make(domain.RetrievalResult, len(cands))
	for i, c := range cands {
		out[i] = domain.ScoredChunk{Chunk: entries[c.Pos].Chunk, Score: c.Score}
	}
	return out
}
