package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockSession implements driving.SessionService for testing.
type mockSession struct {
	doc        *domain.Document
	transcript []domain.TranscriptEntry
	entry      domain.TranscriptEntry
	err        error
	questions  []string
}

var _ driving.SessionService = (*mockSession)(nil)

func newMockSession() *mockSession {
	return &mockSession{
		doc: &domain.Document{
			ID:    "doc-1",
			URI:   "/docs/manual.pdf",
			Title: "manual.pdf",
			Pages: []string{"Page one text.", "Page two text."},
		},
		entry: domain.TranscriptEntry{
			Answer: "The warranty lasts two years.",
			Sources: domain.RetrievalResult{
				{Chunk: domain.Chunk{Text: "Warranty: two years.", SourcePage: 1}, Score: 0.91},
				{Chunk: domain.Chunk{Text: "Returns within 30 days.", SourcePage: 0}, Score: 0.52},
			},
			AskedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func (m *mockSession) Ingest(_ context.Context, doc *domain.Document) error {
	m.doc = doc
	m.transcript = nil
	return nil
}

func (m *mockSession) Ask(_ context.Context, question string) (domain.TranscriptEntry, error) {
	m.questions = append(m.questions, question)
	if m.err != nil {
		return domain.TranscriptEntry{}, m.err
	}
	entry := m.entry
	entry.Question = question
	m.transcript = append(m.transcript, entry)
	return entry, nil
}

func (m *mockSession) Transcript() []domain.TranscriptEntry {
	return append([]domain.TranscriptEntry(nil), m.transcript...)
}

func (m *mockSession) State() domain.SessionState {
	if m.doc == nil {
		return domain.StateEmpty
	}
	return domain.StateIndexed
}

func (m *mockSession) Document() *domain.Document { return m.doc }

func (m *mockSession) Info() domain.SessionInfo {
	info := domain.SessionInfo{ID: "session-1", State: m.State(), Questions: len(m.transcript)}
	if m.doc != nil {
		info.Document = m.doc.Title
		info.Pages = m.doc.PageCount()
		info.Chunks = 7
		info.Dimensions = 768
	}
	return info
}

func (m *mockSession) Close() error { return nil }
