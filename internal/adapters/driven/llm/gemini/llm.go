// Package gemini provides an LLM service adapter using the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai/googleai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel   = "models/gemini-2.5-flash"
	DefaultTimeout = 120 * time.Second

	// roleModel is Gemini's name for the assistant role.
	roleModel = "model"
)

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL overrides the API endpoint
	// (default: https://generativelanguage.googleapis.com/v1beta).
	BaseURL string

	// Model is the model to use (default: models/gemini-2.5-flash).
	Model string

	// Timeout bounds each request (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using the Gemini API.
type LLMService struct {
	client *googleai.Client
	model  string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      *content `json:"content"`
		FinishReason string   `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client: googleai.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:  googleai.ModelPath(cfg.Model),
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Contents:         []content{textContent(driven.RoleUser, prompt)},
		GenerationConfig: newGenerationConfig(opts.MaxTokens, opts.StopWords),
	}
	return s.generate(ctx, req)
}

// Chat conducts a multi-turn conversation. System messages become the
// request's system instruction.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var req generateRequest

	var system []string
	for _, msg := range messages {
		if msg.Role == driven.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Contents = append(req.Contents, textContent(msg.Role, msg.Content))
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}
	req.GenerationConfig = newGenerationConfig(opts.MaxTokens, nil)

	return s.generate(ctx, req)
}

func (s *LLMService) generate(ctx context.Context, req generateRequest) (string, error) {
	var resp generateResponse
	if err := s.client.Post(ctx, "generate", s.model+":generateContent", req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + resp.PromptFeedback.BlockReason
		} else if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = "finish reason " + resp.Candidates[0].FinishReason
		}
		return "", fmt.Errorf("%w: gemini: %s", domain.ErrEmptyGeneration, reason)
	}

	var out strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

func textContent(role, text string) content {
	if role == driven.RoleAssistant {
		role = roleModel
	}
	return content{Role: role, Parts: []part{{Text: text}}}
}

func newGenerationConfig(maxTokens int, stop []string) *generationConfig {
	if maxTokens <= 0 && len(stop) == 0 {
		return nil
	}
	return &generationConfig{MaxOutputTokens: maxTokens, StopSequences: stop}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the key by fetching the model's metadata.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "ping", s.model, nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
