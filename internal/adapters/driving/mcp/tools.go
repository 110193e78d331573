package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the loaded document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Pages   []int          `json:"pages"`
	Sources []SourceOutput `json:"sources"`
}

// SourceOutput is one retrieved passage.
type SourceOutput struct {
	Page  int     `json:"page"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// TranscriptOutput is the output schema for the transcript tool.
type TranscriptOutput struct {
	Entries []EntryOutput `json:"entries"`
	Count   int           `json:"count"`
}

// EntryOutput is one answered question.
type EntryOutput struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Pages    []int     `json:"pages"`
	AskedAt  time.Time `json:"asked_at"`
}

// InfoOutput is the output schema for the document_info tool.
type InfoOutput struct {
	SessionID  string `json:"session_id"`
	State      string `json:"state"`
	Title      string `json:"title,omitempty"`
	URI        string `json:"uri,omitempty"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	Questions  int    `json:"questions"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the loaded document. Returns the answer and the pages it was drawn from.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "transcript",
		Description: "List the questions answered so far in this session, oldest first",
	}, s.handleTranscript)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "document_info",
		Description: "Describe the loaded document and the state of its index",
	}, s.handleDocumentInfo)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	entry, err := s.ports.Session.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  entry.Answer,
		Pages:   nonNil(entry.Sources.Pages()),
		Sources: make([]SourceOutput, len(entry.Sources)),
	}
	for i, sc := range entry.Sources {
		output.Sources[i] = SourceOutput{
			Page:  sc.Chunk.PageNumber(),
			Score: sc.Score,
			Text:  sc.Chunk.Text,
		}
	}

	text := entry.Answer
	if len(output.Pages) > 0 {
		text += "\n\n(pages " + joinInts(output.Pages) + ")"
	}
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
	return result, output, nil
}

// handleTranscript handles the transcript tool invocation.
func (s *Server) handleTranscript(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, TranscriptOutput, error) {
	return nil, newTranscriptOutput(s.ports.Session.Transcript()), nil
}

func newTranscriptOutput(entries []domain.TranscriptEntry) TranscriptOutput {
	output := TranscriptOutput{
		Entries: make([]EntryOutput, len(entries)),
		Count:   len(entries),
	}
	for i, e := range entries {
		output.Entries[i] = EntryOutput{
			Question: e.Question,
			Answer:   e.Answer,
			Pages:    nonNil(e.Sources.Pages()),
			AskedAt:  e.AskedAt,
		}
	}
	return output
}

// handleDocumentInfo handles the document_info tool invocation.
func (s *Server) handleDocumentInfo(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, InfoOutput, error) {
	info := s.ports.Session.Info()
	output := InfoOutput{
		SessionID:  info.ID,
		State:      info.State.String(),
		Title:      info.Document,
		Pages:      info.Pages,
		Chunks:     info.Chunks,
		Dimensions: info.Dimensions,
		Questions:  info.Questions,
	}
	if doc := s.ports.Session.Document(); doc != nil {
		output.URI = doc.URI
	}
	return nil, output, nil
}

func nonNil(pages []int) []int {
	if pages == nil {
		return []int{}
	}
	return pages
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
