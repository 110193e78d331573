package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

type sessionFixture struct {
	session *Session
	emb     *letterEmbedder
	llm     *mockLLM
}

func newFixture(t *testing.T, chunkSize, overlap int, opts SessionOptions) *sessionFixture {
	t.Helper()
	emb := &letterEmbedder{}
	llm := &mockLLM{answer: "The answer."}
	s := NewSession(
		chunker.New(chunker.WithChunkSize(chunkSize), chunker.WithOverlap(overlap)),
		emb,
		flat.NewBuilder(),
		NewAnswerGenerator(llm, domain.GenerationSettings{}),
		opts,
	)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return &sessionFixture{session: s, emb: emb, llm: llm}
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:    "doc-1",
		Title: "fruit.pdf",
		Pages: []string{
			"Apples are red or green. Apples grow on trees in orchards.",
			"Bananas are yellow. Bananas grow in bunches in tropical places.",
			"Zucchini is a vegetable. Zucchini is long and green.",
		},
	}
}

func TestSession_InitialState(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})

	assert.Equal(t, domain.StateEmpty, f.session.State())
	assert.Empty(t, f.session.Transcript())
	assert.Nil(t, f.session.Document())
	assert.NotEmpty(t, f.session.ID())
}

func TestSession_AskBeforeIngest(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})

	_, err := f.session.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, domain.ErrNoDocument)
	assert.Equal(t, 0, f.emb.oneCalls)
	assert.Equal(t, 0, f.llm.calls)
}

func TestSession_IngestAndAsk(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{TopK: 2})
	archive := &mockArchive{}
	f.session.SetTranscriptStore(archive)

	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))
	assert.Equal(t, domain.StateIndexed, f.session.State())

	info := f.session.Info()
	assert.Equal(t, "fruit.pdf", info.Document)
	assert.Equal(t, 3, info.Pages)
	assert.Equal(t, 26, info.Dimensions)
	assert.Greater(t, info.Chunks, 3)

	entry, err := f.session.Ask(context.Background(), "  Which bananas are yellow?  ")
	require.NoError(t, err)
	assert.Equal(t, "Which bananas are yellow?", entry.Question)
	assert.Equal(t, "The answer.", entry.Answer)
	assert.Len(t, entry.Sources, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), entry.AskedAt)

	// The most similar chunk should come from the banana page
	assert.Equal(t, 1, entry.Sources[0].Chunk.SourcePage)

	transcript := f.session.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, entry, transcript[0])

	require.Len(t, archive.entries, 1)
	assert.Equal(t, f.session.ID(), archive.sessions[0])
	assert.Equal(t, 1, f.session.Info().Questions)
}

func TestSession_IngestRejectsEmptyDocument(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})

	for _, doc := range []*domain.Document{nil, {}, {Pages: []string{"", "   "}}} {
		err := f.session.Ingest(context.Background(), doc)
		assert.ErrorIs(t, err, domain.ErrIngestion)
		assert.Equal(t, domain.StateEmpty, f.session.State())
	}
	assert.Equal(t, 0, f.emb.batchCalls)
}

func TestSession_IngestRejectsBadChunking(t *testing.T) {
	f := newFixture(t, 10, 10, SessionOptions{})

	err := f.session.Ingest(context.Background(), testDocument())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.StateEmpty, f.session.State())
	assert.Equal(t, 0, f.emb.batchCalls)
}

// Scenario E: an auth failure while embedding leaves the session empty.
func TestSession_IngestProviderAuthFailure(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	f.emb.batchErr = authError()

	err := f.session.Ingest(context.Background(), testDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
	assert.Equal(t, domain.ErrProviderAuth, domain.KindOf(err))
	assert.Equal(t, domain.StateEmpty, f.session.State())
	assert.Empty(t, f.session.Transcript())

	_, err = f.session.Ask(context.Background(), "apples?")
	assert.ErrorIs(t, err, domain.ErrNoDocument)
}

func TestSession_FailedReingestLeavesEmpty(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{BatchSize: 2})

	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))
	_, err := f.session.Ask(context.Background(), "apples?")
	require.NoError(t, err)
	require.Len(t, f.session.Transcript(), 1)

	// Fail in the second batch of the new ingestion
	f.emb.batchErr = &domain.ProviderError{Provider: "mock", Op: "embed", Kind: domain.ErrProviderNetwork}
	f.emb.failAfter = f.emb.batchCalls + 1

	err = f.session.Ingest(context.Background(), testDocument())
	assert.ErrorIs(t, err, domain.ErrProviderNetwork)
	assert.Equal(t, domain.StateEmpty, f.session.State())
	assert.Empty(t, f.session.Transcript())
	assert.Nil(t, f.session.Document())
}

func TestSession_ReingestDiscardsTranscript(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})

	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))
	firstID := f.session.ID()
	_, err := f.session.Ask(context.Background(), "apples?")
	require.NoError(t, err)

	other := &domain.Document{Title: "other.txt", Pages: []string{"Completely different text."}}
	require.NoError(t, f.session.Ingest(context.Background(), other))
	assert.Equal(t, domain.StateIndexed, f.session.State())
	assert.Empty(t, f.session.Transcript())
	assert.Equal(t, "other.txt", f.session.Document().Title)
	assert.NotEqual(t, firstID, f.session.ID())
}

func TestSession_Batching(t *testing.T) {
	f := newFixture(t, 20, 0, SessionOptions{BatchSize: 2})
	doc := &domain.Document{Pages: []string{strings.Repeat("abcde", 20)}} // 5 chunks

	require.NoError(t, f.session.Ingest(context.Background(), doc))
	assert.Equal(t, 3, f.emb.batchCalls)
	assert.Equal(t, 5, f.session.Info().Chunks)
}

func TestSession_DimensionMismatch(t *testing.T) {
	f := newFixture(t, 20, 0, SessionOptions{BatchSize: 2})
	f.emb.dims = func(call int) int {
		if call == 2 {
			return 13
		}
		return 26
	}
	doc := &domain.Document{Pages: []string{strings.Repeat("abcde", 20)}}

	err := f.session.Ingest(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.StateEmpty, f.session.State())
}

func TestSession_AskProviderFailureKeepsState(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))

	f.llm.err = &domain.ProviderError{Provider: "mock", Op: "generate", Kind: domain.ErrProviderRateLimit}
	_, err := f.session.Ask(context.Background(), "apples?")
	assert.ErrorIs(t, err, domain.ErrProviderRateLimit)
	assert.Equal(t, domain.StateIndexed, f.session.State())
	assert.Empty(t, f.session.Transcript())

	f.llm.err = nil
	f.llm.answer = ""
	_, err = f.session.Ask(context.Background(), "apples?")
	assert.ErrorIs(t, err, domain.ErrEmptyGeneration)
	assert.Empty(t, f.session.Transcript())

	f.llm.answer = "Red or green."
	_, err = f.session.Ask(context.Background(), "apples?")
	require.NoError(t, err)
	assert.Len(t, f.session.Transcript(), 1)
}

func TestSession_AskEmptyQuestion(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))

	_, err := f.session.Ask(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, f.llm.calls)
}

func TestSession_ArchiveFailureIgnored(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	f.session.SetTranscriptStore(&mockArchive{err: errors.New("disk full")})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))

	_, err := f.session.Ask(context.Background(), "apples?")
	require.NoError(t, err)
	assert.Len(t, f.session.Transcript(), 1)
}

func TestSession_IngestCancelled(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.session.Ingest(ctx, testDocument())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateEmpty, f.session.State())
}

func TestSession_TranscriptIsCopy(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))
	_, err := f.session.Ask(context.Background(), "apples?")
	require.NoError(t, err)

	tr := f.session.Transcript()
	tr[0].Answer = "changed"
	assert.Equal(t, "The answer.", f.session.Transcript()[0].Answer)
}

func TestSession_Close(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))

	require.NoError(t, f.session.Close())
	assert.Equal(t, domain.StateEmpty, f.session.State())
}

func TestSession_ConcurrentAsks(t *testing.T) {
	f := newFixture(t, 40, 10, SessionOptions{})
	require.NoError(t, f.session.Ingest(context.Background(), testDocument()))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.session.Ask(context.Background(), "apples?")
		}()
	}
	wg.Wait()
	assert.Len(t, f.session.Transcript(), 10)
}

func TestSessions_Independent(t *testing.T) {
	a := newFixture(t, 40, 10, SessionOptions{})
	b := newFixture(t, 40, 10, SessionOptions{})

	require.NoError(t, a.session.Ingest(context.Background(), testDocument()))
	assert.Equal(t, domain.StateIndexed, a.session.State())
	assert.Equal(t, domain.StateEmpty, b.session.State())
	assert.NotEqual(t, a.session.ID(), b.session.ID())
}

func TestSession_ReadsDoNotWaitForAsk(t *testing.T) {
	llm := newBlockingLLM()
	s := NewSession(
		chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(10)),
		&letterEmbedder{},
		flat.NewBuilder(),
		NewAnswerGenerator(llm, domain.GenerationSettings{}),
		SessionOptions{},
	)
	require.NoError(t, s.Ingest(context.Background(), testDocument()))

	answered := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "apples?")
		answered <- err
	}()
	<-llm.started

	reads := make(chan domain.SessionInfo, 1)
	go func() {
		_ = s.Document()
		_ = s.Transcript()
		_ = s.State()
		reads <- s.Info()
	}()

	select {
	case info := <-reads:
		assert.Equal(t, domain.StateIndexed, info.State)
		assert.Equal(t, "fruit.pdf", info.Document)
		assert.Equal(t, 0, info.Questions)
	case <-time.After(2 * time.Second):
		t.Fatal("session accessors blocked while a question was in flight")
	}

	close(llm.release)
	require.NoError(t, <-answered)
	assert.Len(t, s.Transcript(), 1)
}

func TestSession_AsksStillSerialised(t *testing.T) {
	llm := newBlockingLLM()
	s := NewSession(
		chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(10)),
		&letterEmbedder{},
		flat.NewBuilder(),
		NewAnswerGenerator(llm, domain.GenerationSettings{}),
		SessionOptions{},
	)
	require.NoError(t, s.Ingest(context.Background(), testDocument()))

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Ask(context.Background(), "apples?")
		}()
	}

	<-llm.started
	select {
	case <-llm.started:
		t.Fatal("second question reached the model while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(llm.release)
	wg.Wait()
	assert.Len(t, s.Transcript(), 2)
}
