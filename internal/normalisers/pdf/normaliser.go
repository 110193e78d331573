// Package pdf loads PDF files, one page of text per PDF page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.DocumentLoader = (*Normaliser)(nil)

// Normaliser extracts page text from PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Load extracts the text of every page. A page whose text cannot be
// decoded is kept as an empty page so page numbers stay aligned.
func (n *Normaliser) Load(ctx context.Context, path string) (doc *domain.Document, err error) {
	data, err := normalisers.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// The parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %s: malformed PDF: %v", domain.ErrIngestion, path, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestion, path, err)
	}

	count := reader.NumPage()
	if count <= 0 {
		return nil, fmt.Errorf("%w: %s has no pages", domain.ErrIngestion, path)
	}

	fonts := make(map[string]*pdf.Font)
	pages := make([]string, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			logger.Warn("pdf %s: page %d missing", path, i)
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("pdf %s: page %d: %v", path, i, err)
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}

	return normalisers.NewDocument(path, title(reader), pages), nil
}

// title returns the /Title entry of the document information dictionary.
func title(reader *pdf.Reader) (t string) {
	defer func() {
		if recover() != nil {
			t = ""
		}
	}()
	return strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())
}
