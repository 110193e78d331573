package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ContextDelimiter separates chunks in the assembled context.
const ContextDelimiter = "\n\n---\n\n"

// DefaultAnswerPrompt is the built-in system instruction for grounded answers.
const DefaultAnswerPrompt = `You are an assistant for question-answering tasks.
Use only the given context to answer the question.
If the context does not contain the answer, say that you don't know. Do not make up an answer.
Use {max_sentences} sentences maximum and keep the answer concise.

Context:
{context}`

// Ensure AnswerGenerator implements the optional interface.
var _ driven.PromptStoreAware = (*AnswerGenerator)(nil)

// AnswerGenerator turns a question and retrieved chunks into an answer.
type AnswerGenerator struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.GenerationSettings
}

// NewAnswerGenerator creates a generator. Zero settings fields fall
// back to the defaults.
func NewAnswerGenerator(llm driven.LLMService, settings domain.GenerationSettings) *AnswerGenerator {
	if settings.MaxContextChars <= 0 {
		settings.MaxContextChars = domain.DefaultMaxContextChars
	}
	if settings.MaxSentences <= 0 {
		settings.MaxSentences = domain.DefaultMaxSentences
	}
	if settings.HistoryTurns <= 0 {
		settings.HistoryTurns = domain.DefaultHistoryTurns
	}
	return &AnswerGenerator{llm: llm, settings: settings}
}

// SetPromptStore sets the prompt store for the answer instruction.
func (g *AnswerGenerator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// Generate answers question from the retrieved chunks.
// History is only sent to the model when IncludeHistory is set.
func (g *AnswerGenerator) Generate(
	ctx context.Context, question string, retrieved domain.RetrievalResult, history []domain.TranscriptEntry,
) (string, error) {
	messages := g.BuildMessages(question, retrieved, history)

	done := logger.Timed("Answer generation with %s", g.llm.ModelName())
	answer, err := g.llm.Chat(ctx, messages, driven.ChatOptions{MaxTokens: g.settings.MaxTokens})
	done()
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("generate: %w", domain.ErrEmptyGeneration)
	}
	return answer, nil
}

// BuildMessages assembles the chat messages sent to the model.
func (g *AnswerGenerator) BuildMessages(
	question string, retrieved domain.RetrievalResult, history []domain.TranscriptEntry,
) []driven.ChatMessage {
	ctxText, kept := BuildContext(retrieved, g.settings.MaxContextChars)
	if dropped := len(retrieved) - len(kept); dropped > 0 {
		logger.Debug("Dropped %d lowest ranked chunks to fit %d characters", dropped, g.settings.MaxContextChars)
	}

	system := strings.NewReplacer(
		"{context}", ctxText,
		"{max_sentences}", strconv.Itoa(g.settings.MaxSentences),
	).Replace(g.template())

	messages := []driven.ChatMessage{{Role: driven.RoleSystem, Content: system}}
	if g.settings.IncludeHistory {
		if len(history) > g.settings.HistoryTurns {
			history = history[len(history)-g.settings.HistoryTurns:]
		}
		for _, h := range history {
			messages = append(messages,
				driven.ChatMessage{Role: driven.RoleUser, Content: h.Question},
				driven.ChatMessage{Role: driven.RoleAssistant, Content: h.Answer},
			)
		}
	}
	return append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: question})
}

// template returns the answer instruction, falling back to the built-in
// prompt when the store is unset or fails. A custom template without a
// {context} placeholder gets the context appended.
func (g *AnswerGenerator) template() string {
	if g.prompts == nil {
		return DefaultAnswerPrompt
	}
	tmpl, err := g.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		logger.Warn("Using built-in answer prompt: %v", err)
		return DefaultAnswerPrompt
	}
	if strings.TrimSpace(tmpl) == "" {
		return DefaultAnswerPrompt
	}
	if !strings.Contains(tmpl, "{context}") {
		tmpl += "\n\nContext:\n{context}"
	}
	return tmpl
}

// BuildContext joins chunk texts in retrieval order, separated by
// ContextDelimiter, while the total stays within maxChars characters.
// The first chunk that does not fit is dropped with every chunk after it;
// no chunk is ever cut. It returns the context and the chunks kept.
func BuildContext(retrieved domain.RetrievalResult, maxChars int) (string, domain.RetrievalResult) {
	var b strings.Builder
	size := 0
	delim := len([]rune(ContextDelimiter))

	for i, sc := range retrieved {
		n := len([]rune(sc.Chunk.Text))
		if i > 0 {
			n += delim
		}
		if size+n > maxChars {
			return b.String(), retrieved[:i]
		}
		if i > 0 {
			b.WriteString(ContextDelimiter)
		}
		b.WriteString(sc.Chunk.Text)
		size += n
	}
	return b.String(), retrieved
}
