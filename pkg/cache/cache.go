package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"zoi/sentinel/pkg/compliance"
)

// DefaultTTL is the freshness window of an entry.
const DefaultTTL = 24 * time.Hour

// Metrics receives cache observations.
type Metrics interface {
	ObserveCacheLookup(hit bool)
	SetCacheSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCacheLookup(bool) {}
func (noopMetrics) SetCacheSize(int)        {}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache is the compliance record cache. Store errors are logged and
// reported as misses; reads never fail.
type Cache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	metrics Metrics
	logger  *slog.Logger
}

// New creates a cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		ttl:     DefaultTTL,
		now:     time.Now,
		metrics: noopMetrics{},
		logger:  slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// IsFresh reports whether e is no older than ttl at now.
func IsFresh(e *Entry, ttl time.Duration, now time.Time) bool {
	return e != nil && !e.StoredAt.IsZero() && e.Age(now) <= ttl
}

// IsFresh reports whether e is within the cache's TTL.
func (c *Cache) IsFresh(e *Entry) bool {
	return IsFresh(e, c.ttl, c.now())
}

// Get returns the record for key if a fresh entry exists.
func (c *Cache) Get(ctx context.Context, key string) (*compliance.Record, bool) {
	e, ok := c.Peek(ctx, key)
	hit := ok && c.IsFresh(e)
	c.metrics.ObserveCacheLookup(hit)
	if !hit {
		return nil, false
	}
	return e.Record, true
}

// Peek returns the entry for key regardless of age.
func (c *Cache) Peek(ctx context.Context, key string) (*Entry, bool) {
	e, err := c.store.Load(ctx, key)
	if err == nil {
		return e, true
	}

	var corrupt *CorruptEntryError
	switch {
	case errors.Is(err, ErrNotFound):
	case errors.As(err, &corrupt):
		c.logger.Warn("ignoring malformed cache entry", "key", key, "field", corrupt.Field, "error", corrupt.Cause)
	default:
		c.logger.Error("cache load failed", "key", key, "error", err)
	}
	return nil, false
}

// Set stores rec under key, stamped with the current time.
func (c *Cache) Set(ctx context.Context, key string, rec *compliance.Record) error {
	err := c.store.Save(ctx, &Entry{Key: key, Record: rec, StoredAt: c.now()})
	if err != nil {
		c.logger.Error("cache save failed", "key", key, "error", err)
		return err
	}
	c.refreshSize(ctx)
	return nil
}

// Invalidate removes the entry for key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Error("cache invalidate failed", "key", key, "error", err)
		return err
	}
	c.refreshSize(ctx)
	return nil
}

// Len returns the number of stored entries, fresh or not. Store errors
// count as zero.
func (c *Cache) Len(ctx context.Context) int {
	n, err := c.store.Len(ctx)
	if err != nil {
		c.logger.Error("cache count failed", "error", err)
		return 0
	}
	return n
}

// Evict removes entries older than maxAge.
func (c *Cache) Evict(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := c.store.DeleteBefore(ctx, c.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	c.refreshSize(ctx)
	return n, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) refreshSize(ctx context.Context) {
	c.metrics.SetCacheSize(c.Len(ctx))
}
