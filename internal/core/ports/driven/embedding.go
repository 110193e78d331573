package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Implementations must return vectors of the same dimension for every
// input and must not retry failed calls.
type EmbeddingService interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	// Returns 0 if the size is not known until the first call.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the embedding service is reachable and functional.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
