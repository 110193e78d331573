package domain

import (
	"strings"
	"time"
)

// Document is the uploaded document as a sequence of page texts.
// It is immutable once loaded.
type Document struct {
	// ID uniquely identifies this load of the document.
	ID string

	// URI is the location the document was read from.
	URI string

	// Title is the human-readable name, usually the file name.
	Title string

	// Pages holds the extracted text of each page, in order.
	Pages []string

	// LoadedAt is when the document was read.
	LoadedAt time.Time
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// HasText reports whether any page holds non-whitespace text.
func (d *Document) HasText() bool {
	if d == nil {
		return false
	}
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// CharCount returns the total number of characters across all pages.
func (d *Document) CharCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, p := range d.Pages {
		n += len([]rune(p))
	}
	return n
}

// Chunk is a contiguous span of text taken from one page.
type Chunk struct {
	// ID uniquely identifies this chunk.
	ID string

	// Text is the chunk content. Never empty.
	Text string

	// SourcePage is the zero-based index of the page the chunk came from.
	SourcePage int

	// StartOffset is the character offset of Text within its page.
	StartOffset int
}

// EndOffset returns the character offset just past the chunk's last character.
func (c Chunk) EndOffset() int {
	return c.StartOffset + len([]rune(c.Text))
}

// PageNumber returns the one-based page number for display.
func (c Chunk) PageNumber() int {
	return c.SourcePage + 1
}

// IndexEntry pairs a chunk with its embedding vector.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// ScoredChunk is a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the cosine similarity. Higher means more similar.
	Score float64
}

// RetrievalResult is an ordered list of scored chunks, most similar first.
type RetrievalResult []ScoredChunk

// Chunks returns the chunks without scores, preserving order.
func (r RetrievalResult) Chunks() []Chunk {
	out := make([]Chunk, len(r))
	for i, sc := range r {
		out[i] = sc.Chunk
	}
	return out
}

// Pages returns the distinct one-based page numbers cited by the result,
// in order of first appearance.
func (r RetrievalResult) Pages() []int {
	seen := make(map[int]bool, len(r))
	var pages []int
	for _, sc := range r {
		p := sc.Chunk.PageNumber()
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	return pages
}
