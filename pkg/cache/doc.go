// Package cache stores compliance records by product key with a
// read-time freshness check.
//
// Entries are never rewritten on read. Get treats an entry older than the
// TTL as absent, while Peek returns it regardless of age so callers can
// serve a stale record when nothing better is available. Old entries are
// physically removed by the Sweeper on a cron schedule.
//
// Two stores are provided: MemoryStore for single-process use and tests,
// and SQLiteStore, which persists records as JSON and timestamps as
// RFC 3339 text. A stored timestamp that does not parse makes the entry
// absent.
package cache
