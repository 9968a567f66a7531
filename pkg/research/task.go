package research

import (
	"context"
	"errors"
	"time"

	"zoi/sentinel/pkg/extraction"
	"zoi/sentinel/pkg/providers"
)

// Status is the state of a research task.
type Status string

const (
	StatusSubmitted  Status = "SUBMITTED"
	StatusPolling    Status = "POLLING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusTimedOut   Status = "TIMED_OUT"
	StatusParseError Status = "PARSE_ERROR"
)

// Terminal reports whether the task has finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusParseError:
		return true
	}
	return false
}

// Reason classifies why a task did not complete.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotConfigured    Reason = "not_configured"
	ReasonSubmissionFailed Reason = "submission_failed"
	ReasonPollFailed       Reason = "poll_failed"
	ReasonBackendFailed    Reason = "backend_failed"
	ReasonTimedOut         Reason = "timed_out"
	ReasonParseError       Reason = "parse_error"
	ReasonCancelled        Reason = "cancelled"
)

// Task is one research attempt.
type Task struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	ProductName string    `json:"product_name"`
	Backend     string    `json:"backend"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Status      Status    `json:"status"`
	Reason      Reason    `json:"reason,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Polls       int       `json:"polls"`
	Background  bool      `json:"background"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// Duration is the task's wall-clock time so far, or in total once finished.
func (t *Task) Duration() time.Duration {
	if t.FinishedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// Classify maps an error from a backend or the extraction engine to a
// Reason. fallback is used for errors of no known class.
func Classify(err error, fallback Reason) Reason {
	var (
		cfgErr     *providers.ConfigError
		subErr     *providers.SubmissionError
		pollErr    *providers.PollError
		timeoutErr *providers.TimeoutError
		failure    *extraction.ExtractionFailure
	)
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &timeoutErr):
		return ReasonTimedOut
	case errors.As(err, &cfgErr):
		return ReasonNotConfigured
	case errors.As(err, &failure):
		return ReasonParseError
	case errors.As(err, &subErr):
		return ReasonSubmissionFailed
	case errors.As(err, &pollErr):
		return ReasonPollFailed
	}
	return fallback
}

// statusFor maps a failure reason to the terminal status it implies.
func statusFor(r Reason) Status {
	switch r {
	case ReasonTimedOut:
		return StatusTimedOut
	case ReasonParseError:
		return StatusParseError
	}
	return StatusFailed
}
