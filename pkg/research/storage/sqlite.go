package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections. Default: 4
	MaxOpenConns int

	// WALMode enables write-ahead logging. Default: true
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/research_tasks.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore persists task records in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database and applies the
// schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}
	logger := slog.Default().With("component", "research.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && config.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, newStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite task store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return newStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return newStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStorageError("sqlite", "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return newStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, r *TaskRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO research_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Key, r.ProductName, r.Backend, nullString(r.RemoteID), r.Status, nullString(r.Reason),
		r.Polls, r.Background, nullString(r.Preview),
		r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), r.Duration.Milliseconds(),
	)
	if err != nil {
		return newStorageError("sqlite", "save", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM research_tasks WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newStorageError("sqlite", "get", err)
	}
	return r, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, key string) (*TaskRecord, error) {
	out, err := s.Query(ctx, &Query{Key: key, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*TaskRecord, error) {
	if q == nil {
		q = &Query{}
	}
	var where []string
	var args []any
	if q.Key != "" {
		where = append(where, "key = ?")
		args = append(args, q.Key)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if !q.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		where = append(where, "started_at < ?")
		args = append(args, q.Until.UnixNano())
	}

	query := `SELECT ` + taskColumns + ` FROM research_tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []*TaskRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, newStorageError("sqlite", "scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("sqlite", "query", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM research_tasks`).Scan(&n); err != nil {
		return 0, newStorageError("sqlite", "count", err)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM research_tasks WHERE finished_at < ?`, t.UnixNano())
	if err != nil {
		return 0, newStorageError("sqlite", "delete_before", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM research_tasks WHERE id NOT IN (
			SELECT id FROM research_tasks ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, newStorageError("sqlite", "delete_oldest", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return newStorageError("sqlite", "close", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*TaskRecord, error) {
	var (
		r                     TaskRecord
		remoteID, reason, pre sql.NullString
		started, finished     int64
		durationMs            int64
	)
	err := row.Scan(&r.ID, &r.Key, &r.ProductName, &r.Backend, &remoteID, &r.Status, &reason,
		&r.Polls, &r.Background, &pre, &started, &finished, &durationMs)
	if err != nil {
		return nil, err
	}
	r.RemoteID = remoteID.String
	r.Reason = reason.String
	r.Preview = pre.String
	r.StartedAt = time.Unix(0, started).UTC()
	r.FinishedAt = time.Unix(0, finished).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return &r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
