// Package cache provides an in-memory LRU decorator for embedding services.
//
// Re-ingesting a document, or asking the same question twice, sends the
// same texts to the provider again. The cache keys vectors by the exact
// text, so repeated texts cost nothing.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Key prefixes keep query and document vectors apart, since some
// providers embed the two differently.
const (
	queryPrefix    = "q\x00"
	documentPrefix = "d\x00"
)

// EmbeddingService caches vectors returned by the wrapped service.
type EmbeddingService struct {
	driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps svc with a cache holding up to size vectors.
// A size of zero or less returns svc unchanged.
func New(svc driven.EmbeddingService, size int) (driven.EmbeddingService, error) {
	if size <= 0 {
		return svc, nil
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &EmbeddingService{EmbeddingService: svc, cache: c}, nil
}

// Embed returns the cached query vector or asks the wrapped service.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := queryPrefix + text
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := s.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch sends only the texts missing from the cache, in one call,
// and merges the results back in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, text := range texts {
		if vec, ok := s.cache.Get(documentPrefix + text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))

	vectors, err := s.EmbeddingService.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(missing))
	}
	for j, vec := range vectors {
		out[missingAt[j]] = vec
		s.cache.Add(documentPrefix+missing[j], vec)
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}
