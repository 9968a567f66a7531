// Package research drives compliance research against a backend.
//
// An Orchestrator runs one research attempt end to end:
//
//	SUBMITTED -> POLLING -> COMPLETED | FAILED | TIMED_OUT | PARSE_ERROR
//
// It submits a prompt, polls at a fixed interval under a hard deadline, hands
// the payload to the extraction engine and the result to the truth
// validator, and stamps provenance on the record. Every attempt is visible in
// the Tracker while it runs and is saved to the audit store when it ends.
//
// A Supervisor owns the goroutines: background runs are bounded in number
// and deduplicated per key, and concurrent synchronous runs for the same key
// share one attempt.
package research
