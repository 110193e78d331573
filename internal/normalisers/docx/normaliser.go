// Package docx loads Word documents. Explicit page breaks separate pages.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.DocumentLoader = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser loads DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Load reads the document body. Paragraphs become lines and every
// <w:br w:type="page"/> starts a new page.
func (n *Normaliser) Load(_ context.Context, path string) (*domain.Document, error) {
	data, err := normalisers.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a DOCX archive: %v", domain.ErrIngestion, path, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestion, path, err)
	}
	pages, err := parsePages(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestion, path, err)
	}

	return normalisers.NewDocument(path, extractTitle(reader), pages), nil
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

// parsePages walks the WordprocessingML token stream.
func parsePages(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		pages  []string
		page   strings.Builder
		inRun  bool
		inText bool
	)
	endPage := func() {
		pages = append(pages, strings.TrimSpace(page.String()))
		page.Reset()
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "r":
				inRun = true
			case t.Name.Local == "t":
				inText = true
			case !inRun:
				// tab stops and breaks outside runs are formatting only
			case t.Name.Local == "tab":
				page.WriteByte('\t')
			case t.Name.Local == "br" || t.Name.Local == "cr":
				if attr(t, "type") == "page" {
					endPage()
				} else {
					page.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				page.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}
	endPage()

	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle returns the title from document properties, or "".
func extractTitle(reader *zip.Reader) string {
	content, err := readPart(reader, corePart)
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
