// Package cli provides the docqa command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// SessionOptions adjusts a session built by a SessionFactory.
type SessionOptions struct {
	// Ping contacts both providers before the session is returned.
	Ping bool

	// TopK overrides retrieval.top_k when positive.
	TopK int
}

// SessionFactory builds a ready session from the current settings.
// The returned func releases everything the session holds.
type SessionFactory func(ctx context.Context, opts SessionOptions) (driving.SessionService, func(), error)

// TranscriptArchive reads archived transcripts.
type TranscriptArchive interface {
	Sessions(ctx context.Context) ([]string, error)
	List(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)
}

// Services holds the dependencies commands run against.
type Services struct {
	Settings   driving.SettingsService
	Loader     driven.DocumentLoader
	NewSession SessionFactory

	// Archive is optional; nil when no archive exists yet.
	Archive TranscriptArchive
}

// Bootstrap builds Services for a config directory.
type Bootstrap func(configDir string) (*Services, error)

var (
	settingsService   driving.SettingsService
	documentLoader    driven.DocumentLoader
	newSession        SessionFactory
	transcriptArchive TranscriptArchive

	bootstrap Bootstrap
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document",
	Long: `docqa answers natural-language questions about a single document.

The document is split into chunks, embedded and indexed in memory. Each
question retrieves the most similar chunks and a language model answers
from them, citing the pages it used.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.docqa)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetBootstrap registers the function that builds services once flags are parsed.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// SetServices installs services directly.
func SetServices(s *Services) {
	if s == nil {
		settingsService, documentLoader, newSession, transcriptArchive = nil, nil, nil, nil
		return
	}
	settingsService = s.Settings
	documentLoader = s.Loader
	newSession = s.NewSession
	transcriptArchive = s.Archive
}

func initServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if settingsService != nil || bootstrap == nil {
		return nil
	}
	s, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	return nil
}

// openSession loads path and ingests it into a new session.
func openSession(ctx context.Context, path string, opts SessionOptions) (driving.SessionService, func(), error) {
	if documentLoader == nil || newSession == nil {
		return nil, nil, errors.New("session services not configured")
	}

	session, cleanup, err := newSession(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := ingest(ctx, session, path); err != nil {
		cleanup()
		return nil, nil, err
	}
	return session, cleanup, nil
}

// ingest loads path and replaces the session's document with it.
func ingest(ctx context.Context, session driving.SessionService, path string) error {
	done := logger.Timed("ingest %s", path)
	defer done()

	doc, err := documentLoader.Load(ctx, path)
	if err != nil {
		return err
	}
	if err := session.Ingest(ctx, doc); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	return nil
}
