// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: The single loaded document, one text per page
//   - Chunk: A contiguous span of one page, the unit of retrieval
//   - IndexEntry: A chunk paired with its embedding vector
//   - ScoredChunk: A chunk returned by a similarity query
//   - TranscriptEntry: One answered question within a session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
