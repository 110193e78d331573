// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask questions about the loaded document and read
// its pages and transcript.
package mcp

import "errors"

// ErrMissingSession is returned when the session service is not provided.
var ErrMissingSession = errors.New("mcp: session service is required")
