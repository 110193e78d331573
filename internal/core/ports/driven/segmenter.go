package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// Segmenter splits page texts into overlapping chunks.
type Segmenter interface {
	// Segment returns the chunks of every page, in page order.
	// Returns domain.ErrConfiguration when its parameters are invalid.
	Segment(pages []string) ([]domain.Chunk, error)
}
