// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Document and chunk persistence
//   - BuildStore: Builds, jobs and knowledge base status
//   - LexicalIndex: FTS5 bm25 ranking over chunk text
//
// Because every store shares one database, chunk replacement and job
// completion commit in a single transaction.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. The chunks_fts virtual table is kept in sync with
// chunks by triggers, including rows removed by cascading deletes.
//
// # Data Location
//
// By default, the database is stored at ~/.astraqa/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
