package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/watch"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	chatWatch bool
	chatTopK  int
)

var chatCmd = &cobra.Command{
	Use:   "chat FILE",
	Short: "Chat about a document in the terminal UI",
	Long: `Index FILE and open an interactive chat about it.

Controls:
  Enter         - Ask the question
  PgUp/PgDn     - Scroll the transcript
  Ctrl+S        - Show or hide the retrieved passages
  Ctrl+L        - Clear the input
  Esc, Ctrl+C   - Quit

With --watch the document is re-indexed whenever the file changes on disk.
Re-indexing starts a new session and clears the transcript.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatWatch, "watch", "w", false, "re-index when the file changes")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "chunks retrieved per question (default from settings)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Panics inside bubbletea leave the terminal in raw mode without a trace.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	path := args[0]
	session, cleanup, err := openSession(ctx, path, SessionOptions{TopK: chatTopK})
	if err != nil {
		return err
	}
	defer cleanup()

	app, err := tui.NewApp(&tui.Ports{Session: session})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	// Log lines would corrupt the alternate screen.
	logger.SetOutput(io.Discard)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if chatWatch {
		w, err := watch.New(path)
		if err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		defer w.Close()

		go func() {
			_ = w.Run(ctx, func(ctx context.Context, path string) {
				p.Send(messages.DocumentReloading{Path: path})
				err := ingest(ctx, session, path)
				p.Send(messages.DocumentReloaded{Info: session.Info(), Err: err})
			})
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// reingestOnChange re-indexes the watched file into session until ctx is done.
func reingestOnChange(ctx context.Context, w *watch.Watcher, session driving.SessionService) error {
	return w.Run(ctx, func(ctx context.Context, path string) {
		if err := ingest(ctx, session, path); err != nil {
			logger.Warn("re-indexing %s: %v", path, err)
			return
		}
		info := session.Info()
		logger.Info("re-indexed %s: %d pages, %d chunks", info.Document, info.Pages, info.Chunks)
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
