package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.QuestionInput
	transcript *transcript.View
	statusbar  *status.Bar
	spinner    spinner.Model

	// busy is set while a question or a re-ingest is in flight.
	busy bool

	// title is the header text. Update and View never call the session.
	title string

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat over the session in ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Warning

	a := &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: transcript.New(s),
		statusbar:  status.NewBar(s, km),
		spinner:    sp,
	}
	a.transcript.SetEntries(ports.Session.Transcript())
	a.setInfo(ports.Session.Info())
	return a, nil
}

// WithContext sets the context used for questions.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	title := "docqa"
	if a.title != "" {
		title += " - " + a.title
	}
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle(title),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AnswerReceived:
		a.handleAnswer(msg)
		return a, nil

	case messages.DocumentReloading:
		a.busy = true
		a.err = nil
		a.transcript.SetPending("")
		a.statusbar.SetState(status.StateIndexing)
		return a, a.spinner.Tick

	case messages.DocumentReloaded:
		a.busy = false
		a.transcript.SetEntries(nil)
		a.setInfo(msg.Info)
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.err = nil
		a.statusbar.SetState(status.StateReady)
		a.statusbar.SetMessage("Document changed, re-indexed")
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.statusbar.SetSpinner(a.spinner.View())
		return a, cmd

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(key, a.keymap.ToggleSources):
		a.transcript.ToggleSources()
		return a, nil

	case keymap.Matches(key, a.keymap.ScrollUp), keymap.Matches(key, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case keymap.Matches(key, a.keymap.Clear):
		a.input.Reset()
		return a, nil

	case keymap.Matches(key, a.keymap.Submit):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.busy {
			return a, nil
		}
		a.busy = true
		a.err = nil
		a.input.Reset()
		a.transcript.SetPending(question)
		a.statusbar.SetState(status.StateThinking)
		return a, tea.Batch(a.ask(question), a.spinner.Tick)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask runs the question against the session off the UI goroutine.
func (a *App) ask(question string) tea.Cmd {
	session := a.ports.Session
	ctx := a.ctx
	return func() tea.Msg {
		entry, err := session.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Entry: entry, Info: session.Info(), Err: err}
	}
}

func (a *App) handleAnswer(msg messages.AnswerReceived) {
	a.busy = false
	a.transcript.SetPending("")
	a.statusbar.SetSpinner("")
	if msg.Err != nil {
		a.setError(msg.Err)
		// Give the question back so it can be retried.
		a.input.SetValue(msg.Question)
		return
	}
	a.err = nil
	a.transcript.Append(msg.Entry)
	a.setInfo(msg.Info)
	a.statusbar.SetState(status.StateReady)
}

// setInfo updates the status bar and keeps the last known document title.
func (a *App) setInfo(info domain.SessionInfo) {
	a.statusbar.SetInfo(info)
	if info.Document != "" {
		a.title = info.Document
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.statusbar.SetState(status.StateError)
	a.statusbar.SetMessage(ErrorMessage(err))
}

// ErrorMessage turns a session error into a short hint for the status bar.
func ErrorMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.ErrNoDocument:
		return "no document is indexed"
	case domain.ErrProviderAuth:
		return "the provider rejected the API key"
	case domain.ErrProviderRateLimit:
		return "the provider is rate limiting requests, try again shortly"
	case domain.ErrProviderNetwork:
		return "could not reach the provider"
	case domain.ErrEmptyGeneration:
		return "the model returned an empty answer"
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("docqa")
	if a.title != "" {
		header += a.styles.Muted.Render("  " + a.title)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.transcript.View(),
		a.input.View(),
		a.statusbar.View(),
	)
}

// layout rows outside the transcript: header, input with border, status bar.
const chromeHeight = 1 + 3 + 1

// SetDimensions sizes all components for a terminal of the given size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.input.SetWidth(width)
	a.statusbar.SetWidth(width)
	a.transcript.SetDimensions(width, height-chromeHeight)
}

// Err returns the last error shown.
func (a *App) Err() error {
	return a.err
}

// Busy reports whether a question or re-ingest is in flight.
func (a *App) Busy() bool {
	return a.busy
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// Transcript returns the displayed entries.
func (a *App) Transcript() []domain.TranscriptEntry {
	return a.transcript.Entries()
}

// Title returns the document title shown in the header.
func (a *App) Title() string {
	return a.title
}

// Input returns the current question text.
func (a *App) Input() string {
	return a.input.Value()
}
