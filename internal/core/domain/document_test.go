package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_HasText(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want bool
	}{
		{"nil document", nil, false},
		{"no pages", &Document{}, false},
		{"whitespace pages", &Document{Pages: []string{"  ", "\n\t"}}, false},
		{"one page with text", &Document{Pages: []string{"", "hello"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.HasText())
		})
	}
}

func TestDocument_Counts(t *testing.T) {
	doc := &Document{Pages: []string{"héllo", "wörld!"}}
	assert.Equal(t, 2, doc.PageCount())
	assert.Equal(t, 11, doc.CharCount())

	var nilDoc *Document
	assert.Equal(t, 0, nilDoc.PageCount())
	assert.Equal(t, 0, nilDoc.CharCount())
}

func TestChunk_Offsets(t *testing.T) {
	c := Chunk{Text: "añb", SourcePage: 2, StartOffset: 10}
	assert.Equal(t, 13, c.EndOffset())
	assert.Equal(t, 3, c.PageNumber())
}

func TestRetrievalResult_Pages(t *testing.T) {
	r := RetrievalResult{
		{Chunk: Chunk{ID: "a", SourcePage: 1}, Score: 0.9},
		{Chunk: Chunk{ID: "b", SourcePage: 0}, Score: 0.8},
		{Chunk: Chunk{ID: "c", SourcePage: 1}, Score: 0.7},
	}
	assert.Equal(t, []int{2, 1}, r.Pages())

	chunks := r.Chunks()
	assert.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].ID)
	assert.Equal(t, "c", chunks[2].ID)

	assert.Empty(t, RetrievalResult{}.Pages())
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "indexed", StateIndexed.String())
	assert.Equal(t, unknownDescription, SessionState(9).String())
}
