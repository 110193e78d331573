package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// letterEmbedder embeds text as letter frequencies. Texts sharing
// vocabulary get similar vectors, which is enough to test ranking.
type letterEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	oneCalls   int
	batchErr   error
	embedErr   error
	failAfter  int // fail EmbedBatch once this many calls succeeded, if batchErr set
	dims       func(call int) int
}

func (m *letterEmbedder) vector(text string, dim int) []float32 {
	v := make([]float32, dim)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[int(r-'a')%dim]++
		}
	}
	return v
}

func (m *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text, 26), nil
}

func (m *letterEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil && m.batchCalls > m.failAfter {
		return nil, m.batchErr
	}
	dim := 26
	if m.dims != nil {
		dim = m.dims(m.batchCalls)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t, dim)
	}
	return out, nil
}

func (m *letterEmbedder) Dimensions() int { return 26 }
func (m *letterEmbedder) ModelName() string { return "letters" }
func (m *letterEmbedder) Ping(_ context.Context) error { return nil }
func (m *letterEmbedder) Close() error { return nil }

// mockLLM records the messages it receives.
type mockLLM struct {
	answer   string
	err      error
	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return "", errors.New("not used")
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

// mockPromptStore serves fixed prompts.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// mockArchive records appended entries.
type mockArchive struct {
	entries  []domain.TranscriptEntry
	sessions []string
	err      error
}

func (m *mockArchive) Append(_ context.Context, sessionID string, _ *domain.Document, e domain.TranscriptEntry) error {
	if m.err != nil {
		return m.err
	}
	m.sessions = append(m.sessions, sessionID)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockArchive) List(_ context.Context, _ string) ([]domain.TranscriptEntry, error) {
	return m.entries, nil
}

func (m *mockArchive) Close() error { return nil }

// stubIndex returns a fixed result.
type stubIndex struct {
	result domain.RetrievalResult
	err    error
	gotK   int
	gotVec []float32
}

func (s *stubIndex) Query(v []float32, k int) (domain.RetrievalResult, error) {
	s.gotK = k
	s.gotVec = v
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.result) {
		return s.result[:k], nil
	}
	return s.result, nil
}

func (s *stubIndex) Len() int { return len(s.result) }
func (s *stubIndex) Dimensions() int { return 26 }

func authError() error {
	return &domain.ProviderError{Provider: "mock", Op: "embed", Kind: domain.ErrProviderAuth, StatusCode: 401}
}

func scored(texts ...string) domain.RetrievalResult {
	out := make(domain.RetrievalResult, len(texts))
	for i, t := range texts {
		out[i] = domain.ScoredChunk{
			Chunk: domain.Chunk{ID: t, Text: t, SourcePage: i},
			Score: 1 - float64(i)*0.1,
		}
	}
	return out
}

// blockingLLM holds every Chat call until release is closed.
type blockingLLM struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingLLM() *blockingLLM {
	return &blockingLLM{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (m *blockingLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return "", errors.New("not used")
}

func (m *blockingLLM) Chat(ctx context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.started <- struct{}{}
	select {
	case <-m.release:
		return "Released.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *blockingLLM) ModelName() string { return "blocking-llm" }
func (m *blockingLLM) Ping(_ context.Context) error { return nil }
func (m *blockingLLM) Close() error { return nil }
