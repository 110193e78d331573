package resilience

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure decorators implement their interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
)

// EmbeddingService applies a Policy to every call of the wrapped service.
type EmbeddingService struct {
	driven.EmbeddingService
	policy Policy
}

// WrapEmbedding returns svc unchanged when the policy is disabled.
func WrapEmbedding(svc driven.EmbeddingService, policy Policy) driven.EmbeddingService {
	if svc == nil || !policy.Enabled() {
		return svc
	}
	return &EmbeddingService{EmbeddingService: svc, policy: policy}
}

// Embed embeds one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return Do(ctx, s.policy, "embed", func(ctx context.Context) ([]float32, error) {
		return s.EmbeddingService.Embed(ctx, text)
	})
}

// EmbedBatch embeds a batch; a retry resends the whole batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return Do(ctx, s.policy, "embed batch", func(ctx context.Context) ([][]float32, error) {
		return s.EmbeddingService.EmbedBatch(ctx, texts)
	})
}

// LLMService applies a Policy to every generation call of the wrapped service.
type LLMService struct {
	driven.LLMService
	policy Policy
}

// WrapLLM returns svc unchanged when the policy is disabled.
func WrapLLM(svc driven.LLMService, policy Policy) driven.LLMService {
	if svc == nil || !policy.Enabled() {
		return svc
	}
	return &LLMService{LLMService: svc, policy: policy}
}

// Generate produces a completion.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return Do(ctx, s.policy, "generate", func(ctx context.Context) (string, error) {
		return s.LLMService.Generate(ctx, prompt, opts)
	})
}

// Chat answers a conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return Do(ctx, s.policy, "chat", func(ctx context.Context) (string, error) {
		return s.LLMService.Chat(ctx, messages, opts)
	})
}
