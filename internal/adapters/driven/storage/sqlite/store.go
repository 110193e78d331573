package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TranscriptStore = (*Store)(nil)

// dbFile is the database file name inside the data directory.
const dbFile = "transcripts.db"

// Store is a SQLite-backed transcript archive.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the archive in dataDir.
// If dataDir is empty, defaults to ~/.docqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append records one answered question. The document row is written the
// first time the document is seen.
func (s *Store) Append(ctx context.Context, sessionID string, doc *domain.Document, entry domain.TranscriptEntry) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	sources, err := json.Marshal(toSourceRows(entry.Sources))
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	if entry.AskedAt.IsZero() {
		entry.AskedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var documentID sql.NullString
	if doc != nil {
		documentID = sql.NullString{String: doc.ID, Valid: doc.ID != ""}
	}
	if documentID.Valid {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, uri, title, pages, loaded_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, doc.ID, doc.URI, doc.Title, doc.PageCount(), doc.LoadedAt.UTC())
		if err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcript_entries (session_id, document_id, question, answer, sources, asked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, documentID, entry.Question, entry.Answer, string(sources), entry.AskedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving transcript entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transcript entry: %w", err)
	}
	return nil
}

// List returns a session's entries in the order they were appended.
func (s *Store) List(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, sources, asked_at
		FROM transcript_entries
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var entry domain.TranscriptEntry
		var sourcesJSON string
		var askedAt sql.NullTime
		if err := rows.Scan(&entry.Question, &entry.Answer, &sourcesJSON, &askedAt); err != nil {
			return nil, fmt.Errorf("scanning transcript entry: %w", err)
		}

		var sources []sourceRow
		if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
			return nil, fmt.Errorf("unmarshalling sources: %w", err)
		}
		entry.Sources = fromSourceRows(sources)
		if askedAt.Valid {
			entry.AskedAt = askedAt.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript: %w", err)
	}

	return entries, nil
}

// Sessions returns the IDs of all archived sessions, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id FROM transcript_entries
		GROUP BY session_id
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return ids, nil
}

// sourceRow is the archived form of a retrieved chunk.
type sourceRow struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Page    int     `json:"page"`
	Offset  int     `json:"offset"`
	Score   float64 `json:"score"`
}

func toSourceRows(result domain.RetrievalResult) []sourceRow {
	rows := make([]sourceRow, len(result))
	for i, sc := range result {
		rows[i] = sourceRow{
			ChunkID: sc.Chunk.ID,
			Text:    sc.Chunk.Text,
			Page:    sc.Chunk.SourcePage,
			Offset:  sc.Chunk.StartOffset,
			Score:   sc.Score,
		}
	}
	return rows
}

func fromSourceRows(rows []sourceRow) domain.RetrievalResult {
	if len(rows) == 0 {
		return nil
	}
	result := make(domain.RetrievalResult, len(rows))
	for i, r := range rows {
		result[i] = domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:          r.ChunkID,
				Text:        r.Text,
				SourcePage:  r.Page,
				StartOffset: r.Offset,
			},
			Score: r.Score,
		}
	}
	return result
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_transcript.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
