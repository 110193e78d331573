package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentLoader reads a file into a Document with one text per page.
type DocumentLoader interface {
	// Extensions returns the file extensions this loader handles,
	// lower case with the leading dot.
	Extensions() []string

	// Load reads the file at path.
	// Returns domain.ErrIngestion if the file cannot be read or parsed.
	Load(ctx context.Context, path string) (*domain.Document, error)
}
