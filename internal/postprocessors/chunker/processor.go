// Package chunker splits page text into overlapping fixed-size chunks.
//
// Each page is cut independently with a sliding window over its
// characters: window chunkSize, stride chunkSize-overlap. With a snap
// window set, a window that stops short of the page end is pulled back
// to the nearest paragraph break, sentence end or space, and the next
// window starts overlap characters before that point. Dropping the first
// overlap characters of every chunk but the first always rebuilds the page.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("8d0c51a4-3b7e-4f0a-9a57-1f2e5d6c7b80")

// Verify interface compliance.
var _ driven.Segmenter = (*Processor)(nil)

// Processor splits pages into chunks.
type Processor struct {
	chunkSize  int
	overlap    int
	snapWindow int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithSnapWindow sets how many characters a chunk end may move back to
// reach a natural boundary. Zero keeps strict windows.
func WithSnapWindow(window int) Option {
	return func(p *Processor) {
		p.snapWindow = window
	}
}

// New creates a new chunker processor with the given options.
// Parameters are validated when Segment is called.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// FromSettings creates a processor from chunking settings.
func FromSettings(s domain.ChunkingSettings) *Processor {
	return New(WithChunkSize(s.Size), WithOverlap(s.Overlap), WithSnapWindow(s.SnapWindow))
}

// Settings returns the processor parameters.
func (p *Processor) Settings() domain.ChunkingSettings {
	return domain.ChunkingSettings{Size: p.chunkSize, Overlap: p.overlap, SnapWindow: p.snapWindow}
}

// Segment splits every page into chunks.
func (p *Processor) Segment(pages []string) ([]domain.Chunk, error) {
	return Segment(pages, p.chunkSize, p.overlap, WithSnapWindow(p.snapWindow))
}

// Segment splits pages into overlapping chunks of at most chunkSize characters.
// Only WithSnapWindow is meaningful in opts. Empty pages produce no
// chunks; a page of only whitespace is still text and yields one.
func Segment(pages []string, chunkSize, overlap int, opts ...Option) ([]domain.Chunk, error) {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	p.chunkSize, p.overlap = chunkSize, overlap

	if err := p.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	var chunks []domain.Chunk
	for page, text := range pages {
		if text == "" {
			continue
		}
		chunks = append(chunks, p.segmentPage(page, []rune(text))...)
	}
	return chunks, nil
}

func (p *Processor) segmentPage(page int, text []rune) []domain.Chunk {
	n := len(text)

	// Estimate number of chunks
	estimated := n/(p.chunkSize-p.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else if p.snapWindow > 0 {
			end = p.snap(text, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          chunkID(page, start, end),
			Text:        string(text[start:end]),
			SourcePage:  page,
			StartOffset: start,
		})

		if end == n {
			return chunks
		}
		start = end - p.overlap
	}
}

// snap moves end back to the best boundary in the lookback window.
// The result stays above start+overlap so every window advances.
func (p *Processor) snap(text []rune, start, end int) int {
	lo := end - p.snapWindow
	if floor := start + p.overlap + 1; lo < floor {
		lo = floor
	}
	if lo >= end {
		return end
	}

	if i := lastBoundary(text, lo, end, isParagraphBreak); i > 0 {
		return i
	}
	if i := lastBoundary(text, lo, end, isSentenceEnd); i > 0 {
		return i
	}
	if i := lastBoundary(text, lo, end, isWordBreak); i > 0 {
		return i
	}
	return end
}

// lastBoundary returns the largest i in [lo, end] for which match(text, i)
// holds, or -1.
func lastBoundary(text []rune, lo, end int, match func([]rune, int) bool) int {
	for i := end; i >= lo; i-- {
		if match(text, i) {
			return i
		}
	}
	return -1
}

func isParagraphBreak(text []rune, i int) bool {
	return i >= 2 && text[i-1] == '\n' && text[i-2] == '\n'
}

func isSentenceEnd(text []rune, i int) bool {
	if i < 2 || !unicode.IsSpace(text[i-1]) {
		return false
	}
	switch text[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func isWordBreak(text []rune, i int) bool {
	return i >= 1 && unicode.IsSpace(text[i-1])
}

func chunkID(page, start, end int) string {
	return uuid.NewSHA1(chunkNamespace, fmt.Appendf(nil, "%d:%d:%d", page, start, end)).String()
}
