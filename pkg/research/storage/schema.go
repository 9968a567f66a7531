package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Timestamps are stored as Unix nanoseconds so range filters compare
// numerically regardless of time zone.
const schema = `
CREATE TABLE IF NOT EXISTS research_tasks (
    id TEXT PRIMARY KEY,
    key TEXT NOT NULL,
    product_name TEXT NOT NULL DEFAULT '',
    backend TEXT NOT NULL,
    remote_id TEXT,
    status TEXT NOT NULL,
    reason TEXT,
    polls INTEGER NOT NULL DEFAULT 0,
    background BOOLEAN NOT NULL DEFAULT 0,
    preview TEXT,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_research_tasks_key_started ON research_tasks(key, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_research_tasks_status ON research_tasks(status);
CREATE INDEX IF NOT EXISTS idx_research_tasks_finished ON research_tasks(finished_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const getSchemaVersion = `SELECT MAX(version) FROM schema_version`

const taskColumns = `id, key, product_name, backend, remote_id, status, reason, polls, background, preview, started_at, finished_at, duration_ms`
