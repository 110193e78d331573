package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:       "doc-1",
		URI:      "/tmp/report.pdf",
		Title:    "report.pdf",
		Pages:    []string{"alpha", "beta"},
		LoadedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testEntry(question string) domain.TranscriptEntry {
	return domain.TranscriptEntry{
		Question: question,
		Answer:   "answer to " + question,
		Sources: domain.RetrievalResult{
			{Chunk: domain.Chunk{ID: "c-1", Text: "beta", SourcePage: 1, StartOffset: 0}, Score: 0.9},
		},
		AskedAt: time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
	}
}

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "transcripts.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, dir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var version int
	err := store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	for _, table := range []string{"documents", "transcript_entries"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "s-1", testDocument(), testEntry("q1")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store := setupTestStore(t)

	var fkEnabled int
	err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

func TestStore_AppendAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, store.Append(ctx, "s-1", doc, testEntry("first")))
	require.NoError(t, store.Append(ctx, "s-1", doc, testEntry("second")))
	require.NoError(t, store.Append(ctx, "s-2", doc, testEntry("other")))

	entries, err := store.List(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "first", entries[0].Question)
	assert.Equal(t, "second", entries[1].Question)
	assert.Equal(t, "answer to first", entries[0].Answer)
	assert.True(t, entries[0].AskedAt.Equal(testEntry("first").AskedAt))

	require.Len(t, entries[0].Sources, 1)
	src := entries[0].Sources[0]
	assert.Equal(t, "c-1", src.Chunk.ID)
	assert.Equal(t, "beta", src.Chunk.Text)
	assert.Equal(t, 1, src.Chunk.SourcePage)
	assert.InDelta(t, 0.9, src.Score, 1e-9)

	var docs int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&docs))
	assert.Equal(t, 1, docs)
}

func TestStore_Append_NoSources(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := testEntry("q")
	entry.Sources = nil
	require.NoError(t, store.Append(ctx, "s-1", nil, entry))

	entries, err := store.List(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Sources)
}

func TestStore_Append_RequiresSessionID(t *testing.T) {
	store := setupTestStore(t)

	err := store.Append(context.Background(), "", testDocument(), testEntry("q"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Append_DefaultsAskedAt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := testEntry("q")
	entry.AskedAt = time.Time{}
	require.NoError(t, store.Append(ctx, "s-1", testDocument(), entry))

	entries, err := store.List(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].AskedAt.IsZero())
}

func TestStore_List_UnknownSession(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.List(context.Background(), "missing")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Sessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "old", testDocument(), testEntry("a")))
	require.NoError(t, store.Append(ctx, "new", testDocument(), testEntry("b")))

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)
}
