// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AnswerReceived carries the outcome of a submitted question and the
// session summary taken once it was answered.
type AnswerReceived struct {
	Question string
	Entry    domain.TranscriptEntry
	Info     domain.SessionInfo
	Err      error
}

// DocumentReloading is sent when the watched document changed and is
// being ingested again.
type DocumentReloading struct {
	Path string
}

// DocumentReloaded carries the result of re-ingesting a changed document.
// The session transcript is empty afterwards.
type DocumentReloaded struct {
	Info domain.SessionInfo
	Err  error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
