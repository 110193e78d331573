package normalisers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.DocumentLoader = (*Registry)(nil)

// MaxFileSize is the largest file a loader will read.
const MaxFileSize = 64 << 20

// Registry dispatches Load to the loader registered for the file extension.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]driven.DocumentLoader
}

// NewRegistry creates a registry holding the given loaders.
// A later loader replaces an earlier one for the same extension.
func NewRegistry(loaders ...driven.DocumentLoader) *Registry {
	r := &Registry{loaders: make(map[string]driven.DocumentLoader)}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Register adds a loader for each of its extensions.
func (r *Registry) Register(l driven.DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supports reports whether a loader is registered for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Load reads path with the loader registered for its extension.
// Returns domain.ErrUnsupportedType when no loader matches.
func (r *Registry) Load(ctx context.Context, path string) (*domain.Document, error) {
	l, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %q (supported: %s)",
			domain.ErrUnsupportedType, filepath.Ext(path), strings.Join(r.Extensions(), ", "))
	}

	done := logger.Timed("load %s", filepath.Base(path))
	doc, err := l.Load(ctx, path)
	done()
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded %q: %d pages, %d chars", doc.Title, doc.PageCount(), doc.CharCount())
	return doc, nil
}

func (r *Registry) lookup(path string) (driven.DocumentLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// ReadFile reads a document file, reporting failures as domain.ErrIngestion.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrIngestion, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIngestion, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrIngestion, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrIngestion, path, info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIngestion, err)
	}
	return data, nil
}

// NewDocument builds a Document for a file. An empty title falls back
// to TitleFromPath.
func NewDocument(path, title string, pages []string) *domain.Document {
	if title == "" {
		title = TitleFromPath(path)
	}
	uri := path
	if abs, err := filepath.Abs(path); err == nil {
		uri = abs
	}
	return &domain.Document{
		ID:       uuid.New().String(),
		URI:      uri,
		Title:    title,
		Pages:    pages,
		LoadedAt: time.Now(),
	}
}

// TitleFromPath turns a file name into a readable title.
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// SplitPages splits text on form feeds, the page separator used by
// text exports of paginated documents.
func SplitPages(text string) []string {
	return strings.Split(text, "\f")
}
