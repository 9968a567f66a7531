package providers

import "context"

// PollStatus is the normalized status of a backend task.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollRunning   PollStatus = "running"
	PollCompleted PollStatus = "completed"
	PollFailed    PollStatus = "failed"
)

// Terminal reports whether no further polls are needed.
func (s PollStatus) Terminal() bool {
	return s == PollCompleted || s == PollFailed
}

// Handle identifies a task on a poll-style backend.
type Handle struct {
	ID  string
	URL string
}

// PollResult is one observation of a task.
type PollResult struct {
	Status PollStatus

	// Payload is the raw answer when Status is PollCompleted. It is a
	// map[string]any, []any or string.
	Payload any

	// Reason describes a PollFailed result in the backend's own words.
	Reason string
}

// Submission is the outcome of Submit. Poll-style backends set Handle;
// synchronous backends set Result to a terminal PollResult.
type Submission struct {
	Handle Handle
	Result *PollResult
}

// Backend is a research backend adapter.
type Backend interface {
	// Name identifies the backend in logs, metrics and task records.
	Name() string

	// Configured reports whether the backend has the credentials it needs.
	// Submit on an unconfigured backend returns a *ConfigError without I/O.
	Configured() bool

	// Submit starts research for prompt.
	Submit(ctx context.Context, prompt string) (*Submission, error)

	// Poll reports the current state of a submitted task.
	Poll(ctx context.Context, h Handle) (*PollResult, error)
}

// HealthReporter is implemented by backends that track transport health.
type HealthReporter interface {
	Health() Health
}
