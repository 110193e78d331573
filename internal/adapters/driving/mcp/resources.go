package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "docqa://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "document",
		Name:        "document",
		Description: "Full text of the loaded document, pages separated by form feeds",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "document/pages/{page}",
		Name:        "document-page",
		Description: "Text of one page of the loaded document, numbered from 1",
		MIMEType:    "text/plain",
	}, s.handlePageResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "transcript",
		Name:        "transcript",
		Description: "Questions and answers of the current session",
		MIMEType:    "application/json",
	}, s.handleTranscriptResource)
}

// handleDocumentResource returns the whole document text.
func (s *Server) handleDocumentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	doc := s.ports.Session.Document()
	if doc == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return textResult(req.Params.URI, "text/plain", strings.Join(doc.Pages, "\f")), nil
}

// handlePageResource returns the text of a single page.
func (s *Server) handlePageResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	doc := s.ports.Session.Document()
	page := extractPageNumber(req.Params.URI)
	if doc == nil || page < 1 || page > doc.PageCount() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return textResult(req.Params.URI, "text/plain", doc.Pages[page-1]), nil
}

// handleTranscriptResource returns the session transcript as JSON.
func (s *Server) handleTranscriptResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(newTranscriptOutput(s.ports.Session.Transcript()), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling transcript: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     text,
		}},
	}
}

// extractPageNumber extracts the page from a URI like docqa://document/pages/{page}.
// Returns 0 if the URI does not name a page.
func extractPageNumber(uri string) int {
	const prefix = uriScheme + "document/pages/"

	if !strings.HasPrefix(uri, prefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(uri, prefix))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
