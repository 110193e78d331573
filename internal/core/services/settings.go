package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyChunkSnap        = "chunking.snap_window"
	keyTopK             = "retrieval.top_k"
	keyIndex            = "retrieval.index"
	keyMaxContext       = "generation.max_context_chars"
	keyMaxSentences     = "generation.max_sentences"
	keyIncludeHistory   = "generation.include_history"
	keyHistoryTurns     = "generation.history_turns"
	keyMaxTokens        = "generation.max_tokens"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedCacheSize   = "embedding.cache_size"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyRetryMax         = "retry.max_retries"
	keyRetryInitial     = "retry.initial_interval_ms"
	keyRetryMaxInterval = "retry.max_interval_ms"
	keyRateRPS          = "ratelimit.requests_per_second"
	keyRateBurst        = "ratelimit.burst"
	keyArchive          = "transcript.archive"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindFloat
	kindProvider
	kindIndex
)

// settingKinds lists every settable key and how its value is parsed.
var settingKinds = map[string]valueKind{
	keyChunkSize:        kindInt,
	keyChunkOverlap:     kindInt,
	keyChunkSnap:        kindInt,
	keyTopK:             kindInt,
	keyIndex:            kindIndex,
	keyMaxContext:       kindInt,
	keyMaxSentences:     kindInt,
	keyIncludeHistory:   kindBool,
	keyHistoryTurns:     kindInt,
	keyMaxTokens:        kindInt,
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedBatchSize:   kindInt,
	keyEmbedCacheSize:   kindInt,
	keyLLMProvider:      kindProvider,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindString,
	keyRetryMax:         kindInt,
	keyRetryInitial:     kindInt,
	keyRetryMaxInterval: kindInt,
	keyRateRPS:          kindFloat,
	keyRateBurst:        kindInt,
	keyArchive:          kindBool,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// API keys missing from the config store are read from the environment.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:       s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap:    s.getIntAllowZero(keyChunkOverlap, d.Chunking.Overlap),
			SnapWindow: s.getIntAllowZero(keyChunkSnap, d.Chunking.SnapWindow),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:  s.getInt(keyTopK, d.Retrieval.TopK),
			Index: s.getIndex(d.Retrieval.Index),
		},
		Generation: domain.GenerationSettings{
			MaxContextChars: s.getInt(keyMaxContext, d.Generation.MaxContextChars),
			MaxSentences:    s.getInt(keyMaxSentences, d.Generation.MaxSentences),
			IncludeHistory:  s.getBool(keyIncludeHistory, d.Generation.IncludeHistory),
			HistoryTurns:    s.getInt(keyHistoryTurns, d.Generation.HistoryTurns),
			MaxTokens:       s.getInt(keyMaxTokens, d.Generation.MaxTokens),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:     s.configStore.GetString(keyEmbedModel),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			BatchSize: s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			CacheSize: s.getIntAllowZero(keyEmbedCacheSize, d.Embedding.CacheSize),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Retry: domain.RetrySettings{
			MaxRetries:      s.getIntAllowZero(keyRetryMax, d.Retry.MaxRetries),
			InitialInterval: s.getMillis(keyRetryInitial, d.Retry.InitialInterval),
			MaxInterval:     s.getMillis(keyRetryMaxInterval, d.Retry.MaxInterval),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.configStore.GetFloat(keyRateRPS),
			Burst:             s.getInt(keyRateBurst, 1),
		},
		Transcript: domain.TranscriptSettings{
			Archive: s.getBool(keyArchive, d.Transcript.Archive),
		},
	}

	// Models default per provider so switching provider never keeps a foreign model
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings.
// API keys are only written when set, so keys taken from the
// environment are not copied into the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkSnap, settings.Chunking.SnapWindow},
		{keyTopK, settings.Retrieval.TopK},
		{keyIndex, settings.Retrieval.Index.String()},
		{keyMaxContext, settings.Generation.MaxContextChars},
		{keyMaxSentences, settings.Generation.MaxSentences},
		{keyIncludeHistory, settings.Generation.IncludeHistory},
		{keyHistoryTurns, settings.Generation.HistoryTurns},
		{keyMaxTokens, settings.Generation.MaxTokens},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedCacheSize, settings.Embedding.CacheSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyRetryMax, settings.Retry.MaxRetries},
		{keyRetryInitial, int(settings.Retry.InitialInterval / time.Millisecond)},
		{keyRetryMaxInterval, int(settings.Retry.MaxInterval / time.Millisecond)},
		{keyRateRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateBurst, settings.RateLimit.Burst},
		{keyArchive, settings.Transcript.Archive},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envAPIKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envAPIKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// Set updates a single setting by its dotted key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindString:
		parsed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer: %q", domain.ErrInvalidInput, key, value)
		}
		parsed = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false: %q", domain.ErrInvalidInput, key, value)
		}
		parsed = b
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number: %q", domain.ErrInvalidInput, key, value)
		}
		parsed = f
	case kindProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		if key == keyEmbedProvider && !p.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
		parsed = value
	case kindIndex:
		if !domain.IndexKind(value).IsValid() {
			return fmt.Errorf("%w: unknown index %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	}

	// Reject values that would leave the pipeline unusable
	current, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.apply(current, key, parsed).Validate(); err != nil {
		return err
	}

	return s.configStore.Set(key, parsed)
}

// apply returns a copy of settings with one chunking, retrieval or
// generation value replaced so the result can be validated.
func (s *SettingsService) apply(settings *domain.AppSettings, key string, value any) domain.AppSettings {
	out := *settings
	n, _ := value.(int)
	switch key {
	case keyChunkSize:
		out.Chunking.Size = n
	case keyChunkOverlap:
		out.Chunking.Overlap = n
	case keyChunkSnap:
		out.Chunking.SnapWindow = n
	case keyTopK:
		out.Retrieval.TopK = n
	case keyMaxContext:
		out.Generation.MaxContextChars = n
	case keyMaxSentences:
		out.Generation.MaxSentences = n
	case keyEmbedBatchSize:
		out.Embedding.BatchSize = n
	}
	return out
}

// Keys returns every settable key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" && provider == settings.Embedding.Provider {
		apiKey = settings.Embedding.APIKey
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey
	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" && provider == settings.LLM.Provider {
		apiKey = settings.LLM.APIKey
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey
	return s.Save(settings)
}

// Validate checks the current settings, including that both providers
// have the credentials they need.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured (missing API key?)",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is not configured (missing API key?)",
			domain.ErrConfiguration, settings.LLM.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envAPIKey(p domain.AIProvider) string {
	for _, name := range p.APIKeyEnv() {
		if v := s.getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicitly stored zero as a value.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getIndex(defaultVal domain.IndexKind) domain.IndexKind {
	kind := domain.IndexKind(s.configStore.GetString(keyIndex))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}
