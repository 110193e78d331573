package domain

import "time"

// SessionState is the lifecycle state of a question-answering session.
type SessionState int

// Session states.
const (
	// StateEmpty means no document is indexed. Questions are rejected.
	StateEmpty SessionState = iota

	// StateIndexed means a document is indexed and questions may be asked.
	StateIndexed
)

// String returns the string representation.
func (s SessionState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIndexed:
		return "indexed"
	default:
		return unknownDescription
	}
}

// TranscriptEntry is one question and its answer.
type TranscriptEntry struct {
	Question string
	Answer   string

	// Sources are the chunks that were retrieved for the question.
	Sources RetrievalResult

	AskedAt time.Time
}

// SessionInfo summarises a session for display.
type SessionInfo struct {
	ID         string
	State      SessionState
	Document   string
	Pages      int
	Chunks     int
	Dimensions int
	Questions  int
}
