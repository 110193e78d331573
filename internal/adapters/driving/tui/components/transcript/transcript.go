// Package transcript renders the question and answer history in a
// scrollable viewport.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// previewLength is the number of characters of each source passage shown.
const previewLength = 160

// View shows answered questions oldest first, followed by the question
// currently being answered, if any.
type View struct {
	styles      *styles.Styles
	viewport    viewport.Model
	entries     []domain.TranscriptEntry
	pending     string
	showSources bool
	width       int
	height      int
}

// New creates an empty transcript view.
func New(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		styles:   s,
		viewport: viewport.New(80, 10),
		width:    80,
		height:   10,
	}
	v.refresh()
	return v
}

// Update forwards scrolling to the viewport.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the transcript.
func (v *View) View() string {
	return v.styles.Transcript.Render(v.viewport.View())
}

// SetEntries replaces the transcript.
func (v *View) SetEntries(entries []domain.TranscriptEntry) {
	v.entries = append([]domain.TranscriptEntry(nil), entries...)
	v.refresh()
}

// Append adds an answered question and scrolls to it.
func (v *View) Append(entry domain.TranscriptEntry) {
	v.entries = append(v.entries, entry)
	v.refresh()
}

// Entries returns the displayed entries.
func (v *View) Entries() []domain.TranscriptEntry {
	return v.entries
}

// SetPending shows question as awaiting an answer. An empty string clears it.
func (v *View) SetPending(question string) {
	v.pending = question
	v.refresh()
}

// Pending returns the question awaiting an answer.
func (v *View) Pending() string {
	return v.pending
}

// ToggleSources switches between page citations and full source passages.
func (v *View) ToggleSources() {
	v.showSources = !v.showSources
	v.refresh()
}

// ShowSources reports whether source passages are displayed.
func (v *View) ShowSources() bool {
	return v.showSources
}

// SetDimensions sets the outer size including the border.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	fw, fh := v.styles.Transcript.GetFrameSize()
	v.viewport.Width = max(20, width-fw)
	v.viewport.Height = max(3, height-fh)
	v.refresh()
}

// refresh re-renders the content and keeps the latest entry in view.
func (v *View) refresh() {
	v.viewport.SetContent(v.render())
	v.viewport.GotoBottom()
}

func (v *View) render() string {
	if len(v.entries) == 0 && v.pending == "" {
		return v.styles.Muted.Render("Ask a question to get started.")
	}

	wrap := lipgloss.NewStyle().Width(v.viewport.Width)
	blocks := make([]string, 0, len(v.entries)+1)
	for i, e := range v.entries {
		var b strings.Builder
		b.WriteString(v.styles.Question.Render(fmt.Sprintf("Q%d: %s", i+1, e.Question)))
		b.WriteString("\n")
		b.WriteString(wrap.Render(v.styles.Answer.Render(e.Answer)))
		b.WriteString("\n")
		b.WriteString(v.renderSources(e.Sources, wrap))
		blocks = append(blocks, b.String())
	}
	if v.pending != "" {
		blocks = append(blocks,
			v.styles.Question.Render(fmt.Sprintf("Q%d: %s", len(v.entries)+1, v.pending))+"\n"+
				v.styles.Muted.Render("..."))
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderSources(sources domain.RetrievalResult, wrap lipgloss.Style) string {
	if len(sources) == 0 {
		return v.styles.Citation.Render("(no sources)")
	}
	if !v.showSources {
		return v.styles.Citation.Render("Pages: " + PageList(sources.Pages()))
	}

	lines := make([]string, 0, len(sources))
	for i, sc := range sources {
		line := fmt.Sprintf("[%d] page %d, score %.3f: %s",
			i+1, sc.Chunk.PageNumber(), sc.Score, logger.Preview(strings.Join(strings.Fields(sc.Chunk.Text), " "), previewLength))
		lines = append(lines, wrap.Render(v.styles.Citation.Render(line)))
	}
	return strings.Join(lines, "\n")
}

// PageList formats page numbers as "1, 3, 4".
func PageList(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}
