package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// TranscriptStore archives answered questions.
// The live transcript is owned by the session; the archive is a log only.
type TranscriptStore interface {
	// Append records one answered question for a session.
	Append(ctx context.Context, sessionID string, doc *domain.Document, entry domain.TranscriptEntry) error

	// List returns a session's archived entries in the order they were asked.
	List(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)

	// Close releases resources.
	Close() error
}
