package tui

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// MockSessionService implements driving.SessionService for testing.
type MockSessionService struct {
	mu sync.Mutex

	AskFunc func(ctx context.Context, question string) (domain.TranscriptEntry, error)

	doc        *domain.Document
	transcript []domain.TranscriptEntry
	asked      []string

	// readGate, when set, holds every read accessor until it is closed.
	readGate chan struct{}
}

// blockReads makes the read accessors wait until the returned func runs.
func (m *MockSessionService) blockReads() func() {
	gate := make(chan struct{})
	m.mu.Lock()
	m.readGate = gate
	m.mu.Unlock()
	return func() { close(gate) }
}

func (m *MockSessionService) waitReads() {
	m.mu.Lock()
	gate := m.readGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

var _ driving.SessionService = (*MockSessionService)(nil)

func newIndexedMock() *MockSessionService {
	return &MockSessionService{
		doc: &domain.Document{Title: "handbook.pdf", Pages: []string{"one", "two"}},
	}
}

func (m *MockSessionService) Ingest(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
	m.transcript = nil
	return nil
}

func (m *MockSessionService) Ask(ctx context.Context, question string) (domain.TranscriptEntry, error) {
	m.mu.Lock()
	m.asked = append(m.asked, question)
	m.mu.Unlock()

	if m.AskFunc != nil {
		return m.AskFunc(ctx, question)
	}
	if m.Document() == nil {
		return domain.TranscriptEntry{}, domain.ErrNoDocument
	}
	entry := domain.TranscriptEntry{Question: question, Answer: "answer to " + question}
	m.mu.Lock()
	m.transcript = append(m.transcript, entry)
	m.mu.Unlock()
	return entry, nil
}

func (m *MockSessionService) Transcript() []domain.TranscriptEntry {
	m.waitReads()
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TranscriptEntry(nil), m.transcript...)
}

func (m *MockSessionService) State() domain.SessionState {
	if m.Document() == nil {
		return domain.StateEmpty
	}
	return domain.StateIndexed
}

func (m *MockSessionService) Document() *domain.Document {
	m.waitReads()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

func (m *MockSessionService) Info() domain.SessionInfo {
	m.waitReads()
	m.mu.Lock()
	defer m.mu.Unlock()
	info := domain.SessionInfo{State: domain.StateEmpty, Questions: len(m.transcript)}
	if m.doc != nil {
		info.State = domain.StateIndexed
		info.Document = m.doc.Title
		info.Pages = m.doc.PageCount()
		info.Chunks = 4
	}
	return info
}

func (m *MockSessionService) Close() error { return nil }

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		err   error
	}{
		{"nil ports", nil, ErrMissingSession},
		{"missing session", &Ports{}, ErrMissingSession},
		{"with session", &Ports{Session: &MockSessionService{}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
