package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"zoi/sentinel/pkg/compliance"
)

// TimestampLayout is the stored_at format. It is fixed width so that
// stored values sort chronologically as text.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS compliance_cache (
	key TEXT PRIMARY KEY,
	record TEXT NOT NULL,
	data_source TEXT,
	stored_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_compliance_cache_stored_at ON compliance_cache(stored_at);
`

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore is a Store backed by a SQLite file. Records are stored as
// JSON.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	loadStmt   *sql.Stmt
	saveStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

const sqliteBackend = "sqlite"

// NewSQLiteStore opens or creates the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) prepare() error {
	var err error
	s.loadStmt, err = s.db.Prepare(`SELECT record, stored_at FROM compliance_cache WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}
	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO compliance_cache (key, record, data_source, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			record = excluded.record,
			data_source = excluded.data_source,
			stored_at = excluded.stored_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}
	s.deleteStmt, err = s.db.Prepare(`DELETE FROM compliance_cache WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Load(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recordJSON, storedAt string
	err := s.loadStmt.QueryRowContext(ctx, key).Scan(&recordJSON, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Backend: sqliteBackend, Operation: "load", Key: key, Cause: err}
	}

	ts, err := time.Parse(time.RFC3339Nano, storedAt)
	if err != nil {
		return nil, &CorruptEntryError{Key: key, Field: "stored_at", Cause: err}
	}
	var rec compliance.Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, &CorruptEntryError{Key: key, Field: "record", Cause: err}
	}
	return &Entry{Key: key, Record: &rec, StoredAt: ts}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, e *Entry) error {
	if e == nil || e.Record == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	data, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.saveStmt.ExecContext(ctx,
		e.Key,
		string(data),
		string(e.Record.DataSource),
		e.StoredAt.UTC().Format(TimestampLayout),
	)
	if err != nil {
		return &StorageError{Backend: sqliteBackend, Operation: "save", Key: e.Key, Cause: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, key); err != nil {
		return &StorageError{Backend: sqliteBackend, Operation: "delete", Key: key, Cause: err}
	}
	return nil
}

// DeleteBefore removes entries stored before t. Entries whose timestamp
// does not parse are removed as well, since they can never be served.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, stored_at FROM compliance_cache`)
	if err != nil {
		return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Cause: err}
	}
	var doomed []string
	for rows.Next() {
		var key, storedAt string
		if err := rows.Scan(&key, &storedAt); err != nil {
			rows.Close()
			return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Cause: err}
		}
		ts, err := time.Parse(time.RFC3339Nano, storedAt)
		if err != nil || ts.Before(t) {
			doomed = append(doomed, key)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Cause: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Cause: err}
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.deleteStmt)
	for _, key := range doomed {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Key: key, Cause: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Backend: sqliteBackend, Operation: "sweep", Cause: err}
	}
	return int64(len(doomed)), nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compliance_cache`).Scan(&n); err != nil {
		return 0, &StorageError{Backend: sqliteBackend, Operation: "count", Cause: err}
	}
	return n, nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.loadStmt, s.saveStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
