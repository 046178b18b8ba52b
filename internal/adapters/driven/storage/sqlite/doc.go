// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database file backs three store views:
//
//   - ProfileStore: profiles and their optional PINs
//   - AnswerStore: recorded answers
//   - EmbeddingStore: one vector per answer, stored as a little-endian float32 blob
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.memoir/data/memoir.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Each request borrows a pooled
// connection; WAL mode and a busy timeout let readers and a writer overlap.
package sqlite
