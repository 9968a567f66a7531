package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("task record not found")

// TaskRecord is the persisted form of a research task.
type TaskRecord struct {
	ID          string        `json:"id"`
	Key         string        `json:"key"`
	ProductName string        `json:"product_name"`
	Backend     string        `json:"backend"`
	RemoteID    string        `json:"remote_id,omitempty"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Polls       int           `json:"polls"`
	Background  bool          `json:"background"`
	Preview     string        `json:"preview,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
}

// Query filters task records. Zero fields do not filter.
type Query struct {
	Key    string
	Status string
	Since  time.Time
	Until  time.Time

	// Limit caps the result size; results are newest first
	Limit int
}

// Store persists task records. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces a record by ID.
	Save(ctx context.Context, r *TaskRecord) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*TaskRecord, error)

	// Latest returns the most recently started record for key or ErrNotFound.
	Latest(ctx context.Context, key string) (*TaskRecord, error)

	// Query returns matching records, newest first.
	Query(ctx context.Context, q *Query) ([]*TaskRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteBefore removes records that finished before t.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)

	// DeleteOldest removes the oldest records beyond keep.
	DeleteOldest(ctx context.Context, keep int64) (int64, error)

	Close() error
}

// StorageError wraps a backend failure with the operation that caused it.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
