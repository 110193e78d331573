// Package sqlite archives question-answering transcripts in a local SQLite
// database.
//
// The adapter uses modernc.org/sqlite, a pure Go SQLite implementation,
// so the binary builds without CGO.
//
// # Schema
//
// The schema is managed through numbered migrations embedded from the
// migrations/ directory. Each applied version is recorded in
// schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/transcripts.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode.
package sqlite
