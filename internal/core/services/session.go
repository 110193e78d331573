package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Session implements the interface.
var _ driving.SessionService = (*Session)(nil)

// SessionOptions tunes ingestion and retrieval.
type SessionOptions struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// BatchSize is the number of chunks embedded per request.
	BatchSize int
}

// Session answers questions about one document at a time.
// Ingest and Ask are serialised on op, so a question never sees a
// half-built index and a rebuild never runs while a question is in
// flight. mu guards the fields below and is never held across a remote
// call, so the read accessors return immediately.
type Session struct {
	op sync.Mutex
	mu sync.RWMutex

	segmenter driven.Segmenter
	embedder  driven.EmbeddingService
	builder   driven.IndexBuilder
	generator *AnswerGenerator
	archive   driven.TranscriptStore
	opts      SessionOptions
	now       func() time.Time

	id         string
	doc        *domain.Document
	chunks     int
	retriever  *Retriever
	transcript []domain.TranscriptEntry
}

// NewSession creates an empty session.
func NewSession(
	segmenter driven.Segmenter,
	embedder driven.EmbeddingService,
	builder driven.IndexBuilder,
	generator *AnswerGenerator,
	opts SessionOptions,
) *Session {
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = domain.DefaultBatchSize
	}
	return &Session{
		segmenter: segmenter,
		embedder:  embedder,
		builder:   builder,
		generator: generator,
		opts:      opts,
		now:       time.Now,
		id:        uuid.New().String(),
	}
}

// SetTranscriptStore attaches an archive that receives every answered question.
func (s *Session) SetTranscriptStore(store driven.TranscriptStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = store
}

// ID returns the identifier of the current conversation.
// It changes on every Ingest.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Ingest segments, embeds and indexes doc, replacing any previous
// document and transcript. The session only becomes indexed once the
// new index is fully built.
func (s *Session) Ingest(ctx context.Context, doc *domain.Document) error {
	s.op.Lock()
	defer s.op.Unlock()

	logger.Section("Ingestion")
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()

	if doc == nil || !doc.HasText() {
		return fmt.Errorf("ingest: %w: document has no extractable text", domain.ErrIngestion)
	}
	logger.Debug("Document %q: %d pages, %d characters", doc.Title, doc.PageCount(), doc.CharCount())

	chunks, err := s.segmenter.Segment(doc.Pages)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("ingest: %w: no chunks produced", domain.ErrIngestion)
	}
	logger.Debug("Segmented into %d chunks", len(chunks))

	entries, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	done := logger.Timed("Building %s index", s.builder.Name())
	index, err := s.builder.Build(ctx, entries)
	done()
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.chunks = len(chunks)
	s.retriever = NewRetriever(s.embedder, index, s.opts.TopK)
	s.mu.Unlock()
	logger.Info("Indexed %d chunks of %q (dimension %d)", index.Len(), doc.Title, index.Dimensions())
	return nil
}

// embedChunks embeds chunk texts in batches and checks that every
// vector shares the dimension of the first.
func (s *Session) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.IndexEntry, error) {
	defer logger.Timed("Embedding %d chunks with %s", len(chunks), s.embedder.ModelName())()

	entries := make([]domain.IndexEntry, 0, len(chunks))
	dim := 0
	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.opts.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: embedding service returned %d vectors for %d texts",
				domain.ErrIngestion, len(vecs), len(texts))
		}

		for i, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, fmt.Errorf("%w: chunk %d embedded with dimension %d, expected %d",
					domain.ErrConfiguration, start+i, len(v), dim)
			}
			entries = append(entries, domain.IndexEntry{Chunk: batch[i], Vector: v})
		}
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}
	return entries, nil
}

// Ask answers question from the indexed document.
func (s *Session) Ask(ctx context.Context, question string) (domain.TranscriptEntry, error) {
	s.op.Lock()
	defer s.op.Unlock()

	logger.Section("Question")
	s.mu.RLock()
	retriever, history := s.retriever, s.transcript
	id, doc, archive := s.id, s.doc, s.archive
	s.mu.RUnlock()

	if retriever == nil {
		return domain.TranscriptEntry{}, fmt.Errorf("ask: %w", domain.ErrNoDocument)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.TranscriptEntry{}, fmt.Errorf("ask: %w: empty question", domain.ErrInvalidInput)
	}
	logger.Debug("Question: %q", logger.Preview(question, 120))

	retrieved, err := retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return domain.TranscriptEntry{}, fmt.Errorf("ask: %w", err)
	}

	answer, err := s.generator.Generate(ctx, question, retrieved, history)
	if err != nil {
		return domain.TranscriptEntry{}, fmt.Errorf("ask: %w", err)
	}

	entry := domain.TranscriptEntry{
		Question: question,
		Answer:   answer,
		Sources:  retrieved,
		AskedAt:  s.now(),
	}
	s.mu.Lock()
	s.transcript = append(s.transcript, entry)
	s.mu.Unlock()

	if archive != nil {
		if err := archive.Append(ctx, id, doc, entry); err != nil {
			logger.Warn("Failed to archive transcript entry: %v", err)
		}
	}
	return entry, nil
}

// Transcript returns a copy of the answered questions, oldest first.
func (s *Session) Transcript() []domain.TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// State returns the session state.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state()
}

func (s *Session) state() domain.SessionState {
	if s.retriever == nil {
		return domain.StateEmpty
	}
	return domain.StateIndexed
}

// Document returns the indexed document, or nil.
func (s *Session) Document() *domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Info summarises the session.
func (s *Session) Info() domain.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := domain.SessionInfo{
		ID:        s.id,
		State:     s.state(),
		Chunks:    s.chunks,
		Questions: len(s.transcript),
	}
	if s.doc != nil {
		info.Document = s.doc.Title
		info.Pages = s.doc.PageCount()
	}
	if s.retriever != nil {
		info.Dimensions = s.retriever.index.Dimensions()
	}
	return info
}

// Close discards the index and transcript. It waits for an in-flight
// Ingest or Ask to finish.
func (s *Session) Close() error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// reset returns the session to the empty state under a new conversation ID.
func (s *Session) reset() {
	s.doc = nil
	s.chunks = 0
	s.retriever = nil
	s.transcript = nil
	s.id = uuid.New().String()
}
