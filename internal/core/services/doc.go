// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The question pipeline is split into three services:
//
//   - Retriever: question -> ranked chunks
//   - AnswerGenerator: question + chunks -> answer
//   - Session: ingestion and question handling for one document
//
// Services are pure Go with no CGO.
package services
