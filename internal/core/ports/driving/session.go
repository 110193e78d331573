package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SessionService answers questions about one ingested document.
type SessionService interface {
	// Ingest replaces the session's document. The previous index and
	// transcript are discarded first; on failure the session is left empty.
	Ingest(ctx context.Context, doc *domain.Document) error

	// Ask answers a question from the indexed document and appends the
	// entry to the transcript. Returns domain.ErrNoDocument before a
	// successful Ingest. A failed Ask leaves the transcript unchanged.
	Ask(ctx context.Context, question string) (domain.TranscriptEntry, error)

	// Transcript returns a copy of the answered questions, oldest first.
	Transcript() []domain.TranscriptEntry

	// State returns the session state.
	State() domain.SessionState

	// Document returns the indexed document, or nil when empty.
	Document() *domain.Document

	// Info summarises the session for display.
	Info() domain.SessionInfo

	// Close releases the session's resources.
	Close() error
}
