package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Retriever finds the chunks most relevant to a question.
// It embeds the question and queries the index; ranking is the index's.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	topK     int
}

// NewRetriever creates a retriever over a built index.
// A non-positive topK uses domain.DefaultTopK.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// TopK returns the default number of chunks retrieved.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the k chunks most similar to question.
// A non-positive k uses the retriever's default.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (domain.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("retrieve: %w: empty question", domain.ErrInvalidInput)
	}
	if r.index == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrNoDocument)
	}
	if k <= 0 {
		k = r.topK
	}

	logger.Debug("Retrieving top %d of %d chunks", k, r.index.Len())
	done := logger.Timed("Question embedding")
	vec, err := r.embedder.Embed(ctx, question)
	done()
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed question: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("retrieve: %w: empty query vector", domain.ErrConfiguration)
	}

	result, err := r.index.Query(vec, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	for i, sc := range result {
		logger.Debug("  %d. page %d offset %d score %.4f", i+1, sc.Chunk.PageNumber(), sc.Chunk.StartOffset, sc.Score)
	}
	return result, nil
}
