package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoi/sentinel/pkg/compliance"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is a stored record.
type Entry struct {
	Key      string
	Record   *compliance.Record
	StoredAt time.Time
}

// Age is the entry's age at now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store persists entries. Implementations must be safe for concurrent use
// and must not share record memory with callers.
type Store interface {
	// Load returns the entry for key or ErrNotFound.
	Load(ctx context.Context, key string) (*Entry, error)

	// Save inserts or replaces the entry for e.Key.
	Save(ctx context.Context, e *Entry) error

	// Delete removes the entry for key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// DeleteBefore removes entries stored before t and returns how many
	// were removed.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)

	// Len returns the number of stored entries, fresh or not.
	Len(ctx context.Context) (int, error)

	Close() error
}

// StorageError wraps a store failure.
type StorageError struct {
	Backend   string
	Operation string
	Key       string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s %s %q: %v", e.Backend, e.Operation, e.Key, e.Cause)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// CorruptEntryError reports a stored entry that cannot be decoded.
type CorruptEntryError struct {
	Key   string
	Field string
	Cause error
}

// Error implements the error interface.
func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("cache entry %q has malformed %s: %v", e.Key, e.Field, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *CorruptEntryError) Unwrap() error {
	return e.Cause
}
