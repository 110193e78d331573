package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderGemini || p == AIProviderOllama || p == AIProviderOpenAI
}

// APIKeyEnv returns the environment variables consulted for this
// provider's API key, most specific first.
func (p AIProvider) APIKeyEnv() []string {
	switch p {
	case AIProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case AIProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case AIProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	default:
		return nil
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// IndexKind selects the vector index implementation.
type IndexKind string

// Available index kinds.
const (
	// IndexFlat is an exact brute-force index.
	IndexFlat IndexKind = "flat"

	// IndexLSH is an approximate locality-sensitive hashing index.
	IndexLSH IndexKind = "lsh"
)

// IsValid returns true if the index kind is recognised.
func (k IndexKind) IsValid() bool {
	return k == IndexFlat || k == IndexLSH
}

// String returns the string representation.
func (k IndexKind) String() string {
	return string(k)
}

// ChunkingSettings controls how pages are split into chunks.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// SnapWindow is how far back a chunk end may move to land on a
	// paragraph, sentence or word boundary. Zero disables snapping.
	SnapWindow int
}

// Validate checks that the chunking parameters are usable.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrConfiguration, c.Overlap, c.Size)
	}
	if c.SnapWindow < 0 {
		return fmt.Errorf("%w: snap window must not be negative, got %d", ErrConfiguration, c.SnapWindow)
	}
	return nil
}

// RetrievalSettings controls similarity retrieval.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// Index selects the vector index implementation.
	Index IndexKind
}

// GenerationSettings controls answer generation.
type GenerationSettings struct {
	// MaxContextChars caps the assembled context length.
	MaxContextChars int

	// MaxSentences is the answer length limit given to the model.
	MaxSentences int

	// IncludeHistory sends earlier questions and answers to the model.
	IncludeHistory bool

	// HistoryTurns is how many earlier turns to send when IncludeHistory is set.
	HistoryTurns int

	// MaxTokens caps the model output. Zero uses the provider default.
	MaxTokens int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// CacheSize is the number of embeddings kept in memory. Zero disables the cache.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrySettings controls caller-level retries of transient provider failures.
type RetrySettings struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries int

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Enabled reports whether retries are on.
func (r RetrySettings) Enabled() bool {
	return r.MaxRetries > 0
}

// RateLimitSettings throttles outgoing provider requests.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained rate. Zero disables throttling.
	RequestsPerSecond float64

	Burst int
}

// Enabled reports whether throttling is on.
func (r RateLimitSettings) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// TranscriptSettings controls the on-disk transcript archive.
type TranscriptSettings struct {
	// Archive stores every answered question in a local database.
	Archive bool
}

// AppSettings holds all application configuration.
type AppSettings struct {
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Generation GenerationSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Retry      RetrySettings
	RateLimit  RateLimitSettings
	Transcript TranscriptSettings
}

// Validate checks the settings the pipeline cannot run without.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrConfiguration, s.Retrieval.TopK)
	}
	if !s.Retrieval.Index.IsValid() {
		return fmt.Errorf("%w: unknown index %q", ErrConfiguration, s.Retrieval.Index)
	}
	if s.Generation.MaxContextChars <= 0 {
		return fmt.Errorf("%w: max_context_chars must be positive, got %d",
			ErrConfiguration, s.Generation.MaxContextChars)
	}
	if s.Generation.MaxSentences <= 0 {
		return fmt.Errorf("%w: max_sentences must be positive, got %d",
			ErrConfiguration, s.Generation.MaxSentences)
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch_size must be positive, got %d",
			ErrConfiguration, s.Embedding.BatchSize)
	}
	return nil
}

// Default values.
const (
	DefaultChunkSize       = 600
	DefaultChunkOverlap    = 100
	DefaultTopK            = 4
	DefaultMaxContextChars = 6000
	DefaultMaxSentences    = 3
	DefaultHistoryTurns    = 3
	DefaultBatchSize       = 100
	DefaultCacheSize       = 1024
)

// DefaultAppSettings returns the default application settings.
// Providers default to Gemini; the API key must come from the
// config file or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK:  DefaultTopK,
			Index: IndexFlat,
		},
		Generation: GenerationSettings{
			MaxContextChars: DefaultMaxContextChars,
			MaxSentences:    DefaultMaxSentences,
			HistoryTurns:    DefaultHistoryTurns,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderGemini,
			Model:     DefaultEmbeddingModels()[AIProviderGemini],
			BatchSize: DefaultBatchSize,
			CacheSize: DefaultCacheSize,
		},
		LLM: LLMSettings{
			Provider: AIProviderGemini,
			Model:    DefaultLLMModels()[AIProviderGemini],
		},
		Retry: RetrySettings{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "models/embedding-001",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "models/gemini-2.5-flash",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"models/embedding-001":        768,
		"models/text-embedding-004":   768,
		"models/gemini-embedding-001": 3072,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
