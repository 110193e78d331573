// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai/apierr"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ai/googleai"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel   = "models/embedding-001"
	DefaultTimeout = 60 * time.Second

	// maxBatch is the largest batchEmbedContents request the API accepts.
	maxBatch = 100

	providerName = "gemini"
)

// Task types tell the model which side of retrieval a text is on.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL overrides the API endpoint
	// (default: https://generativelanguage.googleapis.com/v1beta).
	BaseURL string

	// Model is the embedding model to use (default: models/embedding-001).
	Model string

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// Dimensions is the expected vector size. Zero means learn it from
	// the first response.
	Dimensions int
}

// EmbeddingService generates embeddings using the Gemini API.
// Document chunks go through EmbedBatch and are embedded as retrieval
// documents; single texts go through Embed and are embedded as queries.
type EmbeddingService struct {
	client *googleai.Client
	model  string

	mu         sync.RWMutex
	dimensions int
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type embedContentRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &EmbeddingService{
		client:     googleai.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:      googleai.ModelPath(cfg.Model),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a query embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates document embeddings for multiple texts, in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vectors, err := s.embed(ctx, texts[start:end], taskDocument)
		if err != nil {
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	req := batchEmbedRequest{Requests: make([]embedContentRequest, len(texts))}
	for i, text := range texts {
		req.Requests[i] = embedContentRequest{
			Model:    s.model,
			Content:  content{Parts: []part{{Text: text}}},
			TaskType: task,
		}
	}

	var resp batchEmbedResponse
	if err := s.client.Post(ctx, "embed", s.model+":batchEmbedContents", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, apierr.Invalid(providerName, "embed",
			"got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) == 0 {
			return nil, apierr.Invalid(providerName, "embed", "empty embedding at index %d", i)
		}
		vec := make([]float32, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	s.learnDimensions(len(vectors[0]))

	return vectors, nil
}

func (s *EmbeddingService) learnDimensions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = n
	}
}

// Dimensions returns the embedding vector size, or 0 before the first call
// when the model is not in the known list.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key by fetching the model's metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "ping", s.model, nil)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
