// Package coordinator answers compliance lookups.
//
// Lookup never fails. It walks a fixed fallback chain: a fresh cache entry,
// then a synchronous research run when the caller forces a refresh, then
// the reference knowledge base, then a stale research result, and finally a
// placeholder record. Work needed to improve the answer later is handed to
// the research supervisor in the background.
package coordinator
