// Command docqa answers questions about a single document.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vector/lsh"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/html"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

func main() {
	// A missing .env is normal; keys may come from the shell or config.toml.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &application{}
	defer app.close()

	cli.SetBootstrap(app.bootstrap)
	if err := cli.ExecuteContext(ctx); err != nil {
		app.close()
		os.Exit(1)
	}
}

// application owns the process-wide resources built once flags are parsed.
type application struct {
	settings *services.SettingsService
	prompts  *file.PromptStore
	archive  *sqlite.Store
}

func (a *application) bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	a.settings = services.NewSettingsService(configStore, ai.NewConfigValidator())

	a.prompts, err = file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	settings, err := a.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings.Transcript.Archive {
		a.archive, err = sqlite.NewStore(filepath.Join(configDir, "data"))
		if err != nil {
			return nil, fmt.Errorf("opening transcript archive: %w", err)
		}
		logger.Debug("transcript archive: %s", a.archive.Path())
	}

	s := &cli.Services{
		Settings: a.settings,
		Loader: normalisers.NewRegistry(
			pdf.New(),
			plaintext.New(),
			markdown.New(),
			html.New(),
			docx.New(),
		),
		NewSession: a.newSession,
	}
	if a.archive != nil {
		s.Archive = a.archive
	}
	return s, nil
}

// newSession wires a session from the current settings.
func (a *application) newSession(_ context.Context, opts cli.SessionOptions) (driving.SessionService, func(), error) {
	settings, err := a.settings.Get()
	if err != nil {
		return nil, nil, err
	}
	if opts.TopK > 0 {
		settings.Retrieval.TopK = opts.TopK
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	remote, err := ai.Init(settings, opts.Ping)
	if err != nil {
		return nil, nil, err
	}

	segmenter := chunker.FromSettings(settings.Chunking)

	generator := services.NewAnswerGenerator(remote.LLMService, settings.Generation)
	generator.SetPromptStore(a.prompts)

	session := services.NewSession(segmenter, remote.EmbeddingService, indexBuilder(settings.Retrieval.Index),
		generator, services.SessionOptions{
			TopK:      settings.Retrieval.TopK,
			BatchSize: settings.Embedding.BatchSize,
		})
	if a.archive != nil {
		session.SetTranscriptStore(a.archive)
	}

	cleanup := func() {
		_ = session.Close()
		remote.Close()
	}
	return session, cleanup, nil
}

func indexBuilder(kind domain.IndexKind) driven.IndexBuilder {
	if kind == domain.IndexLSH {
		return lsh.NewBuilder()
	}
	return flat.NewBuilder()
}

func (a *application) close() {
	if a.archive != nil {
		_ = a.archive.Close()
		a.archive = nil
	}
}
