// Package plaintext loads plain text files. Form feeds separate pages.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.DocumentLoader = (*Normaliser)(nil)

// Normaliser loads plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text", ".log", ".csv"}
}

// Load reads the file as UTF-8 text, one page per form-feed separated
// section. Invalid UTF-8 sequences are replaced.
func (n *Normaliser) Load(_ context.Context, path string) (*domain.Document, error) {
	data, err := normalisers.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return normalisers.NewDocument(path, "", normalisers.SplitPages(text)), nil
}
