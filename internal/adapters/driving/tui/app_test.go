package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestApp(t *testing.T, session *MockSessionService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Session: session})
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// submit presses enter and runs the resulting question command synchronously.
func submit(t *testing.T, app *App) tea.Msg {
	t.Helper()
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	for _, msg := range runBatch(cmd) {
		if answer, ok := msg.(messages.AnswerReceived); ok {
			return answer
		}
	}
	t.Fatal("no AnswerReceived produced")
	return nil
}

// runBatch executes cmd, expanding batches, and skips spinner ticks.
func runBatch(cmd tea.Cmd) []tea.Msg {
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c == nil {
			continue
		}
		m := c()
		if _, isTick := m.(spinner.TickMsg); isTick {
			continue
		}
		out = append(out, m)
	}
	return out
}

func TestNewApp(t *testing.T) {
	t.Run("valid ports", func(t *testing.T) {
		app, err := NewApp(&Ports{Session: newIndexedMock()})

		require.NoError(t, err)
		assert.False(t, app.Ready())
		assert.Empty(t, app.Transcript())
	})

	t.Run("missing session", func(t *testing.T) {
		app, err := NewApp(&Ports{})

		assert.ErrorIs(t, err, ErrMissingSession)
		assert.Nil(t, app)
	})

	t.Run("shows existing transcript", func(t *testing.T) {
		session := newIndexedMock()
		_, _ = session.Ask(context.Background(), "earlier?")

		app, err := NewApp(&Ports{Session: session})

		require.NoError(t, err)
		require.Len(t, app.Transcript(), 1)
		assert.Equal(t, "earlier?", app.Transcript()[0].Question)
	})
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(&Ports{Session: newIndexedMock()})

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, _ := NewApp(&Ports{Session: newIndexedMock()})
	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "handbook.pdf")
}

func TestApp_AskQuestion(t *testing.T) {
	session := newIndexedMock()
	app := newTestApp(t, session)

	typeText(app, "What is covered?")
	assert.Equal(t, "What is covered?", app.Input())

	msg := submit(t, app)
	assert.True(t, app.Busy())
	assert.Equal(t, "", app.Input())

	app.Update(msg)

	assert.False(t, app.Busy())
	require.Len(t, app.Transcript(), 1)
	assert.Equal(t, "answer to What is covered?", app.Transcript()[0].Answer)
	assert.Contains(t, app.View(), "answer to What is covered?")
	assert.NoError(t, app.Err())
}

func TestApp_StaysResponsiveWhileSessionBusy(t *testing.T) {
	session := newIndexedMock()
	app := newTestApp(t, session)

	typeText(app, "slow question")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, app.Busy())

	release := session.blockReads()
	defer release()

	done := make(chan tea.Cmd, 1)
	go func() {
		view := app.View()
		app.Update(spinner.TickMsg{})
		_ = app.Init()
		_, quit := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if !assert.Contains(t, view, "handbook.pdf") {
			quit = nil
		}
		done <- quit
	}()

	select {
	case quit := <-done:
		require.NotNil(t, quit)
		assert.Equal(t, tea.Quit(), quit())
	case <-time.After(2 * time.Second):
		t.Fatal("UI blocked on the session while a question was in flight")
	}
}

func TestApp_AnswerUpdatesInfoFromMessage(t *testing.T) {
	app := newTestApp(t, newIndexedMock())

	app.Update(messages.AnswerReceived{
		Question: "q",
		Entry:    domain.TranscriptEntry{Question: "q", Answer: "a"},
		Info:     domain.SessionInfo{State: domain.StateIndexed, Document: "renamed.pdf", Questions: 1},
	})

	assert.Equal(t, "renamed.pdf", app.Title())
	assert.Contains(t, app.View(), "renamed.pdf")
}

func TestApp_EmptyQuestionIgnored(t *testing.T) {
	session := newIndexedMock()
	app := newTestApp(t, session)

	typeText(app, "   ")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, app.Busy())
	assert.Empty(t, session.asked)
}

func TestApp_SubmitWhileBusyIgnored(t *testing.T) {
	session := newIndexedMock()
	app := newTestApp(t, session)

	typeText(app, "first")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	typeText(app, "second")
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "second", app.Input())
}

func TestApp_AskError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no document",
			err:  fmt.Errorf("ask: %w", domain.ErrNoDocument),
			want: "no document is indexed",
		},
		{
			name: "auth",
			err:  &domain.ProviderError{Provider: "gemini", Op: "generate", Kind: domain.ErrProviderAuth},
			want: "rejected the API key",
		},
		{
			name: "rate limit",
			err:  &domain.ProviderError{Provider: "gemini", Op: "embed", Kind: domain.ErrProviderRateLimit},
			want: "rate limiting",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newIndexedMock()
			session.AskFunc = func(context.Context, string) (domain.TranscriptEntry, error) {
				return domain.TranscriptEntry{}, tt.err
			}
			app := newTestApp(t, session)

			typeText(app, "why?")
			app.Update(submit(t, app))

			assert.ErrorIs(t, app.Err(), tt.err)
			assert.Empty(t, app.Transcript())
			assert.Equal(t, "why?", app.Input(), "question is restored for retry")
			assert.Equal(t, status.StateError, app.statusbar.State())
			assert.Contains(t, app.statusbar.Message(), tt.want)
		})
	}
}

func TestApp_DocumentReload(t *testing.T) {
	session := newIndexedMock()
	app := newTestApp(t, session)
	typeText(app, "q")
	app.Update(submit(t, app))
	require.Len(t, app.Transcript(), 1)

	_, cmd := app.Update(messages.DocumentReloading{Path: "/tmp/handbook.pdf"})
	assert.NotNil(t, cmd)
	assert.True(t, app.Busy())
	assert.Equal(t, status.StateIndexing, app.statusbar.State())

	app.Update(messages.DocumentReloaded{Info: session.Info()})

	assert.False(t, app.Busy())
	assert.Empty(t, app.Transcript())
	assert.Equal(t, status.StateReady, app.statusbar.State())
	assert.Contains(t, app.statusbar.Message(), "re-indexed")
}

func TestApp_DocumentReloadFailure(t *testing.T) {
	app := newTestApp(t, newIndexedMock())

	app.Update(messages.DocumentReloading{})
	app.Update(messages.DocumentReloaded{
		Info: domain.SessionInfo{State: domain.StateEmpty},
		Err:  fmt.Errorf("ingest: %w: no text", domain.ErrIngestion),
	})

	assert.False(t, app.Busy())
	assert.ErrorIs(t, app.Err(), domain.ErrIngestion)
	assert.Equal(t, status.StateError, app.statusbar.State())
}

func TestApp_Keys(t *testing.T) {
	t.Run("esc quits", func(t *testing.T) {
		app := newTestApp(t, newIndexedMock())
		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("quit message quits", func(t *testing.T) {
		app := newTestApp(t, newIndexedMock())
		_, cmd := app.Update(messages.Quit{})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("q is typed not quit", func(t *testing.T) {
		app := newTestApp(t, newIndexedMock())
		typeText(app, "q")
		assert.Equal(t, "q", app.Input())
	})

	t.Run("ctrl+s toggles sources", func(t *testing.T) {
		app := newTestApp(t, newIndexedMock())
		app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		assert.True(t, app.transcript.ShowSources())
	})

	t.Run("ctrl+l clears input", func(t *testing.T) {
		app := newTestApp(t, newIndexedMock())
		typeText(app, "draft")
		app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
		assert.Equal(t, "", app.Input())
	})
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, newIndexedMock())

	app.Update(messages.ErrorOccurred{Err: errors.New("watch failed")})

	assert.EqualError(t, app.Err(), "watch failed")
	assert.Contains(t, app.View(), "watch failed")
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "could not reach the provider",
		ErrorMessage(&domain.ProviderError{Kind: domain.ErrProviderNetwork}))
	assert.Equal(t, "the model returned an empty answer",
		ErrorMessage(fmt.Errorf("ask: %w", domain.ErrEmptyGeneration)))
}
