// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentLoader: Reads a file into page texts
//   - Segmenter: Splits pages into overlapping chunks
//   - EmbeddingService: Maps text to vectors
//   - IndexBuilder: Builds an immutable VectorIndex from embedded chunks
//   - LLMService: Generates answers from a grounded prompt
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: User-editable prompt templates. Without it, built-in prompts are used.
//   - TranscriptStore: Archive of answered questions. Without it, transcripts live in memory only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
