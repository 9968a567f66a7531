// Package storage persists the audit trail of research tasks.
//
// Every research run that reaches a terminal state is saved as a TaskRecord:
// which product it researched, which backend ran it, how it ended and a short
// preview of the backend payload. Two backends are provided:
//
//   - MemoryStore: process-local, for tests and single-shot CLI use
//   - SQLiteStore: durable, WAL-mode SQLite via github.com/mattn/go-sqlite3
//
// Records are append-only; the retention package deletes old rows.
package storage
